package http

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/api/dto"
	"github.com/spec-kit/ticket-intake/internal/limiter"
	"github.com/spec-kit/ticket-intake/internal/observability"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

// MiddlewareConfig controls the global middleware chain.
type MiddlewareConfig struct {
	Timeout    time.Duration
	Production bool
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger sits outside the error handler so it logs the rendered status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, cfg MiddlewareConfig) {
	app.Use(helmet.New())
	app.Use(cors.New())
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics, cfg.Production))
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, production bool) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				err = renderError(c, err, logger, metrics, production)
			}
		}()
		return c.Next()
	}
}

// ErrorHandler is the fiber fallback for errors raised outside the middleware
// chain, such as body size limits.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return renderError(c, err, logger, metrics, production)
	}
}

func renderError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics, production bool) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(routeKey(c), c.Method(), domainErr.Code)

	body := dto.ErrorBody{
		Message: domainErr.Message,
		Code:    domainErr.Code,
		Details: domainErr.Details,
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(domainErr))
		if !production && domainErr.Err != nil {
			body.Message = domainErr.Err.Error()
		}
	}
	if domainErr.Code == apperrors.CodeRateLimited {
		if retry, ok := domainErr.Details["retryAfter"].(int); ok {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
		}
	}
	return c.Status(domainErr.HTTPStatus).JSON(dto.ErrorEnvelope{Success: false, Error: body})
}

func routeKey(c *fiber.Ctx) string {
	if route := c.Route().Path; route != "" && route != "/" {
		return route
	}
	return c.Path()
}

// RateLimit allows limit requests per window per client IP. Each scope keeps
// its own counter.
func RateLimit(m *limiter.Manager, scope string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := m.Allow(c.UserContext(), scope+":"+c.IP(), limit, window)
		c.Set("RateLimit-Limit", strconv.Itoa(limit))
		c.Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			retry := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			return apperrors.NewRateLimited(retry)
		}
		return c.Next()
	}
}

func notFound(c *fiber.Ctx) error {
	return apperrors.NewDomainError(apperrors.CodeNotFound, "Route not found", fiber.StatusNotFound, nil)
}
