package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-intake/internal/domain"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

// RequireStaffRole ensures the staff principal has one of the allowed roles.
// It is a no-op when auth is disabled.
func (m *StaffAuth) RequireStaffRole(allowed ...domain.StaffRole) fiber.Handler {
	allowedSet := make(map[domain.StaffRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if m == nil || len(allowedSet) == 0 {
			return c.Next()
		}
		staff, ok := StaffFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("Staff authentication required")
		}
		if _, exists := allowedSet[staff.Role]; !exists {
			return apperrors.NewForbidden("Insufficient role")
		}
		return c.Next()
	}
}
