package handlers

import (
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler handles the admin-only order and user endpoints.
type AdminHandler struct {
	service  *services.AdminService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *services.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the admin routes behind guards.
func (h *AdminHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	adminRoutes := router.Group("/admin", guards...)
	adminRoutes.Get("/orders", h.HandleGetOrders)
	adminRoutes.Get("/orders/:id", h.HandleGetOrder)
	adminRoutes.Put("/orders/:id", h.HandleUpdateOrderStatus)
	adminRoutes.Get("/users", h.HandleGetUsers)
	adminRoutes.Get("/users/:id/orders", h.HandleGetUserOrders)
	adminRoutes.Delete("/users/:id", h.HandleDeleteUser)
}

// UpdateOrderStatusRequest is the body of PUT /admin/orders/:id.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleGetOrders lists the orders of every user.
func (h *AdminHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetAllOrders(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(orders)
}

// HandleGetOrder returns any order.
func (h *AdminHandler) HandleGetOrder(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "order ID")
	}
	order, err := h.service.GetOrder(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(order)
}

// HandleUpdateOrderStatus sets the status of an order.
func (h *AdminHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "order ID")
	}
	var req UpdateOrderStatusRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	order, err := h.service.UpdateOrderStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(order)
}

// HandleGetUsers lists customer accounts.
func (h *AdminHandler) HandleGetUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(users)
}

// HandleGetUserOrders lists the orders of one user.
func (h *AdminHandler) HandleGetUserOrders(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "user ID")
	}
	orders, err := h.service.GetUserOrders(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(orders)
}

// HandleDeleteUser removes a user with its carts and orders.
func (h *AdminHandler) HandleDeleteUser(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidID(c, "user ID")
	}
	if err := h.service.DeleteUser(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
	})
}
