package repositories_test

import (
	"context"
	"testing"

	"storefront/internal/database/dbtest"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGORMProductRepository_DecrementStock(t *testing.T) {
	db := dbtest.Open(t)
	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()

	product := &models.Product{Name: "Lamp", Price: decimal.NewFromInt(30), Stock: 3}
	require.NoError(t, repo.Create(ctx, product))

	stock := func() int {
		loaded, err := repo.GetByID(ctx, product.ID)
		require.NoError(t, err)
		return loaded.Stock
	}

	// Test successful decrement
	require.NoError(t, repo.DecrementStock(ctx, product.ID, 2))
	assert.Equal(t, 1, stock())

	// Test decrement beyond stock
	err := repo.DecrementStock(ctx, product.ID, 2)
	assert.ErrorIs(t, err, repositories.ErrStockConflict)
	assert.Equal(t, 1, stock())

	// Test non-positive quantities
	for _, q := range []int{0, -5} {
		err = repo.DecrementStock(ctx, product.ID, q)
		assert.ErrorIs(t, err, repositories.ErrStockConflict)
	}
	assert.Equal(t, 1, stock())

	// Test unknown product
	err = repo.DecrementStock(ctx, 9999, 1)
	assert.ErrorIs(t, err, repositories.ErrStockConflict)

	// Exact remaining stock empties the product
	require.NoError(t, repo.DecrementStock(ctx, product.ID, 1))
	assert.Equal(t, 0, stock())
}
