// Package server assembles the fiber application and its route table.
package server

import (
	"errors"
	"time"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// Services are the application services the HTTP layer delegates to.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Carts    *services.CartService
	Orders   *services.OrderService
	Admin    *services.AdminService
}

// Options tune the app. The zero value is usable.
type Options struct {
	// AccessLog enables the per-request access log.
	AccessLog bool
	// Status reports extra health fields, such as the broker connection.
	Status func() fiber.Map
}

// New builds the fiber app with every route registered under /api/v1.
func New(svc Services, logger *zap.Logger, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		if opts.Status != nil {
			for k, v := range opts.Status() {
				body[k] = v
			}
		}
		return c.JSON(body)
	})

	authRequired := middleware.AuthRequired(svc.Auth, logger)
	customer := []fiber.Handler{authRequired, middleware.RequireRole(models.RoleUser)}
	admin := []fiber.Handler{authRequired, middleware.RequireRole(models.RoleAdmin)}

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(svc.Auth, logger).RegisterRoutes(apiV1, authRequired)
	handlers.NewProductHandler(svc.Products, logger).RegisterRoutes(apiV1, admin...)
	handlers.NewCartHandler(svc.Carts, logger).RegisterRoutes(apiV1, customer...)
	handlers.NewOrderHandler(svc.Orders, logger).RegisterRoutes(apiV1, customer...)
	handlers.NewAdminHandler(svc.Admin, logger).RegisterRoutes(apiV1, admin...)

	return app
}

// errorHandler renders errors that escape the handlers, such as unknown routes and
// recovered panics.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		logger.Error("Unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}
