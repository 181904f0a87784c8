package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for the authenticated user's orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the order routes behind guards.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	orderRoutes := router.Group("/orders", guards...)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	CartID uint `json:"cart_id" validate:"required,gt=0"`
}

// HandleGetOrders lists the user's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID returns one of the user's orders.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "order ID")
	}
	order, err := h.service.GetOrder(c.UserContext(), middleware.UserID(c), orderID)
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(order)
}

// HandleCreateOrder checks out the given cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	order, err := h.service.PlaceOrder(c.UserContext(), middleware.UserID(c), req.CartID)
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   order,
	})
}
