package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
	"github.com/LeeDev428/rarevault-e-comm/internal/repository/mysql"
)

// newTestDB 每个测试用独立的内存 sqlite 实例
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, mysql.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *user.User {
	t.Helper()
	u := &user.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedItem(t *testing.T, db *gorm.DB, sellerID, priceCents, stock int64) *item.Item {
	t.Helper()
	status := item.StatusActive
	if stock == 0 {
		status = item.StatusOutOfStock
	}
	it := &item.Item{
		SellerID:   sellerID,
		Title:      "Vintage Gameboy",
		Category:   "electronics",
		Condition:  item.ConditionGood,
		PriceCents: priceCents,
		Stock:      stock,
		Status:     status,
	}
	require.NoError(t, db.Create(it).Error)
	return it
}

func reloadItem(t *testing.T, db *gorm.DB, id int64) *item.Item {
	t.Helper()
	var it item.Item
	require.NoError(t, db.First(&it, id).Error)
	return &it
}

func testCtx() context.Context {
	return context.Background()
}
