// Package dbtest opens migrated in-memory databases for package tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront-system/internal/database"
	"storefront-system/internal/database/models"
)

// New returns a fresh, migrated sqlite database private to t. The pool is
// capped at one connection so the in-memory database outlives every query.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	opts := database.ConnectOptions{MaxTries: 1, MaxOpenConns: 1, MaxIdleConns: 1}

	db, err := database.Open(context.Background(), sqlite.Open(dsn), opts, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedProduct inserts a published product and returns it.
func SeedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if p.Name == "" {
		p.Name = "product-" + uuid.NewString()[:8]
	}
	if p.Slug == "" {
		p.Slug = uuid.NewString()
	}
	if p.Price == "" {
		p.Price = "10.00"
	}
	if p.StockStatus == "" {
		p.StockStatus = models.StockStatusInStock
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func SeedUser(t *testing.T, db *gorm.DB, u models.User) models.User {
	t.Helper()
	if u.Email == "" {
		u.Email = uuid.NewString() + "@example.com"
	}
	if u.Name == "" {
		u.Name = "Test User"
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}
