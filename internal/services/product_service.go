package services

import (
	"context"
	"errors"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, productError(err)
	}
	return product, nil
}

// CreateProduct creates a new product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.Stock < 0 || product.Price.IsNegative() {
		return newError(ErrInvalidQuantity, "price and stock must not be negative")
	}
	return s.repo.Create(ctx, product)
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if product.Stock < 0 || product.Price.IsNegative() {
		return newError(ErrInvalidQuantity, "price and stock must not be negative")
	}
	return productError(s.repo.Update(ctx, product))
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	return productError(s.repo.Delete(ctx, id))
}

func productError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(ErrNotFound, "product not found")
	}
	return err
}
