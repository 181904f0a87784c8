package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logging"
	"storefront/internal/repositories"
	"storefront/internal/server"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	app, cleanup, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer cleanup()

	// --- Start HTTP Server ---
	logger.Info("Starting server", zap.String("port", cfg.AppPort))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.AppPort); err != nil {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	logger.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		logger.Error("Error during Fiber shutdown", zap.Error(err))
	}
	logger.Info("Server gracefully stopped")
}

// newApp wires the database, the broker and the services into a fiber app. cleanup
// releases the broker and database connections.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*fiber.App, func(), error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	mqClient := connectBroker(cfg, logger)
	cleanup := func() {
		if mqClient != nil {
			if err := mqClient.Close(); err != nil {
				logger.Warn("Error closing RabbitMQ client", zap.Error(err))
			}
		}
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Error closing database", zap.Error(err))
		}
	}

	// A nil *rabbitmq.Client must not end up inside a non-nil interface.
	var publisher services.EventPublisher
	status := fiber.Map{"broker": "disabled"}
	if mqClient != nil {
		publisher = mqClient
		status["broker"] = "connected"
	}

	store := repositories.NewGORMStore(db)
	authService := services.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTTTL, logger.Named("auth"))
	if cfg.Admin.Email != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to seed admin account: %w", err)
		}
	}

	app := server.New(server.Services{
		Auth:     authService,
		Products: services.NewProductService(store.Products()),
		Carts: services.NewCartService(store, services.CartOptions{
			MergePricing:      cfg.Cart.MergePricing,
			EnforceStockOnAdd: cfg.Cart.EnforceStockOnAdd,
		}, logger.Named("cart")),
		Orders: services.NewOrderService(store, publisher, logger.Named("orders")),
		Admin:  services.NewAdminService(store, publisher, logger.Named("admin")),
	}, logger, server.Options{
		AccessLog: cfg.AccessLog,
		Status: func() fiber.Map {
			if mqClient != nil && !mqClient.Connected() {
				return fiber.Map{"broker": "disconnected"}
			}
			return status
		},
	})
	return app, cleanup, nil
}

// connectBroker returns nil when the broker is disabled or unreachable; orders are still
// placed, only their events are skipped.
func connectBroker(cfg *config.Config, logger *zap.Logger) *rabbitmq.Client {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL is empty, order events are disabled")
		return nil
	}

	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
		URL:      cfg.RabbitMQURL,
		Exchange: cfg.RabbitMQExchange,
	}, logger.Named("rabbitmq"))
	if err != nil {
		logger.Warn("RabbitMQ unavailable, order events are disabled", zap.Error(err))
		return nil
	}

	if err := mqClient.ConsumeOrderEvents(cfg.RabbitMQQueue, logOrderEvent(logger.Named("events"))); err != nil {
		logger.Warn("Failed to start RabbitMQ consumer", zap.Error(err))
	}
	return mqClient
}

// logOrderEvent records every order event received from the broker.
func logOrderEvent(logger *zap.Logger) rabbitmq.MessageHandler {
	return func(msg amqp.Delivery) error {
		var event services.OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("failed to decode order event: %w", err)
		}
		logger.Info("Received order event",
			zap.String("event_id", event.EventID),
			zap.String("type", event.Type),
			zap.Uint("order_id", event.OrderID),
			zap.String("status", event.Status),
			zap.String("total_amount", event.TotalAmount.StringFixed(2)))
		return nil
	}
}
