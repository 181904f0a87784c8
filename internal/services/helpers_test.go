package services_test

import (
	"context"
	"fmt"
	"testing"

	"storefront/internal/database/dbtest"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testDB bundles an in-memory database with a store over it.
type testDB struct {
	db    *gorm.DB
	store *repositories.GORMStore
}

func newTestDB(t *testing.T) *testDB {
	db := dbtest.Open(t)
	return &testDB{db: db, store: repositories.NewGORMStore(db)}
}

func (d *testDB) seedUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "hashed",
		Role:     models.RoleUser,
	}
	require.NoError(t, d.db.Create(user).Error)
	return user
}

func (d *testDB) seedProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
	require.NoError(t, d.db.Create(product).Error)
	return product
}

func (d *testDB) stock(t *testing.T, productID uint) int {
	t.Helper()
	var product models.Product
	require.NoError(t, d.db.First(&product, productID).Error)
	return product.Stock
}

func (d *testDB) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, d.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual),
		"expected %s, got %s", expected, actual.String())
}

func findLine(cart *models.Cart, productID uint) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i]
		}
	}
	return nil
}

var bg = context.Background()
