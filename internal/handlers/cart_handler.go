package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the cart routes behind guards.
func (h *CartHandler) RegisterRoutes(router fiber.Router, guards ...fiber.Handler) {
	cartRoutes := router.Group("/cart", guards...)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:product_id", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:product_id", h.HandleRemoveItem)
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID uint `json:"product_id" validate:"required,gt=0"`
	Quantity  int  `json:"quantity" validate:"required,gte=1,lte=10000"`
}

// UpdateItemRequest is the body of PUT /cart/items/:product_id.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=10000"`
}

// HandleGetCart returns the active cart, creating it on first use.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetActiveCart(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusNotFound)
	}
	return c.JSON(cart)
}

// HandleAddItem adds a product to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	cart, err := h.service.AddItem(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusBadRequest)
	}
	return c.JSON(fiber.Map{
		"message": "Product added to cart",
		"cart":    cart,
	})
}

// HandleUpdateItem changes the quantity of a cart line.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	productID, ok := paramID(c, "product_id")
	if !ok {
		return invalidID(c, "product ID")
	}
	var req UpdateItemRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	cart, err := h.service.UpdateItem(c.UserContext(), middleware.UserID(c), productID, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusNotFound)
	}
	return c.JSON(fiber.Map{
		"message": "Cart item updated",
		"cart":    cart,
	})
}

// HandleRemoveItem deletes a cart line.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	productID, ok := paramID(c, "product_id")
	if !ok {
		return invalidID(c, "product ID")
	}

	cart, err := h.service.RemoveItem(c.UserContext(), middleware.UserID(c), productID)
	if err != nil {
		return respondError(c, h.logger, err, fiber.StatusNotFound)
	}
	return c.JSON(fiber.Map{
		"message": "Product removed from cart",
		"cart":    cart,
	})
}
