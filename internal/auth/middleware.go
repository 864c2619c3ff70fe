package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-intake/internal/domain"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

const staffKey = "auth_staff"

// StaffAuth validates bearer tokens on staff-only routes. A nil StaffAuth
// lets every request through.
type StaffAuth struct {
	tokens *TokenManager
}

// NewStaffAuth constructs middleware. It returns nil when auth is disabled.
func NewStaffAuth(enabled bool, tokens *TokenManager) *StaffAuth {
	if !enabled || tokens == nil {
		return nil
	}
	return &StaffAuth{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *StaffAuth) Handle(c *fiber.Ctx) error {
	if m == nil {
		return c.Next()
	}
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("Invalid authorization header")
	}

	staff, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("Invalid or expired token")
	}

	c.Locals(staffKey, staff)
	return c.Next()
}

// StaffFromContext retrieves the authenticated staff member, if any.
func StaffFromContext(c *fiber.Ctx) (*domain.Staff, bool) {
	staff, ok := c.Locals(staffKey).(*domain.Staff)
	return staff, ok && staff != nil
}
