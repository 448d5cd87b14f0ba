package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/apperr"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
	"github.com/LeeDev428/rarevault-e-comm/internal/repository/mysql"
)

func newItemService(db *gorm.DB) *ItemService {
	return NewItemService(
		mysql.NewItemRepository(db),
		mysql.NewUserRepository(db),
		mysql.NewRatingRepository(db),
		mysql.NewOrderRepository(db),
		nil)
}

func strPtr(s string) *string { return &s }
func i64Ptr(n int64) *int64   { return &n }

func TestCreateItem(t *testing.T) {
	db := newTestDB(t)
	svc := newItemService(db)
	seller := seedUser(t, db, "seller1", user.RoleSeller)

	it, err := svc.Create(testCtx(), seller.ID, CreateItemRequest{
		Title:       "1985 Nintendo Famicom",
		Description: "boxed, tested, works",
		Category:    "electronics",
		PriceCents:  12500,
		Stock:       2,
		Condition:   item.ConditionGood,
		Year:        1985,
		ImageURLs:   []string{"/uploads/famicom-1.jpg", "/uploads/famicom-2.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, item.StatusActive, it.Status)

	imgs, err := svc.ListImages(testCtx(), it.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.True(t, imgs[0].IsPrimary)
	assert.False(t, imgs[1].IsPrimary)
}

func TestCreateItemValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newItemService(db)
	seller := seedUser(t, db, "seller1", user.RoleSeller)

	base := CreateItemRequest{
		Title:       "ok",
		Description: "ok",
		Category:    "toys",
		PriceCents:  100,
		Stock:       1,
		Condition:   item.ConditionGood,
	}

	cases := []struct {
		name   string
		mutate func(*CreateItemRequest)
	}{
		{"missing title", func(r *CreateItemRequest) { r.Title = "" }},
		{"missing category", func(r *CreateItemRequest) { r.Category = "" }},
		{"missing description", func(r *CreateItemRequest) { r.Description = "" }},
		{"zero price", func(r *CreateItemRequest) { r.PriceCents = 0 }},
		{"negative stock", func(r *CreateItemRequest) { r.Stock = -1 }},
		{"bad condition", func(r *CreateItemRequest) { r.Condition = "mint" }},
		{"year too old", func(r *CreateItemRequest) { r.Year = 999 }},
		{"year in future", func(r *CreateItemRequest) { r.Year = time.Now().Year() + 2 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := base
			c.mutate(&req)
			_, err := svc.Create(testCtx(), seller.ID, req)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	// 零库存是合法的，但直接落为 out_of_stock
	req := base
	req.Stock = 0
	it, err := svc.Create(testCtx(), seller.ID, req)
	require.NoError(t, err)
	assert.Equal(t, item.StatusOutOfStock, it.Status)
}

func TestUpdateItemStockStatusCoupling(t *testing.T) {
	db := newTestDB(t)
	svc := newItemService(db)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	it := seedItem(t, db, seller.ID, 1000, 2)

	// 库存清零 -> out_of_stock
	got, err := svc.Update(testCtx(), seller.ID, user.RoleSeller, it.ID,
		UpdateItemRequest{Stock: i64Ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, item.StatusOutOfStock, got.Status)

	// 补货 -> 自动回 active
	got, err = svc.Update(testCtx(), seller.ID, user.RoleSeller, it.ID,
		UpdateItemRequest{Stock: i64Ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, item.StatusActive, got.Status)
	assert.Equal(t, int64(5), got.Stock)

	// 状态必须是合法枚举值
	_, err = svc.Update(testCtx(), seller.ID, user.RoleSeller, it.ID,
		UpdateItemRequest{Status: strPtr("archived")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	got, err = svc.Update(testCtx(), seller.ID, user.RoleSeller, it.ID,
		UpdateItemRequest{Status: strPtr(item.StatusRemoved)})
	require.NoError(t, err)
	assert.Equal(t, item.StatusRemoved, got.Status)
}

func TestUpdateItemOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := newItemService(db)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	other := seedUser(t, db, "seller2", user.RoleSeller)
	admin := seedUser(t, db, "admin1", user.RoleAdmin)
	it := seedItem(t, db, seller.ID, 1000, 1)

	_, err := svc.Update(testCtx(), other.ID, user.RoleSeller, it.ID,
		UpdateItemRequest{Title: strPtr("hijacked")})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// 管理员可以改任何商品
	got, err := svc.Update(testCtx(), admin.ID, user.RoleAdmin, it.ID,
		UpdateItemRequest{Title: strPtr("moderated title")})
	require.NoError(t, err)
	assert.Equal(t, "moderated title", got.Title)

	_, err = svc.Update(testCtx(), seller.ID, user.RoleSeller, 99999,
		UpdateItemRequest{Title: strPtr("x")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteItemCascadesImages(t *testing.T) {
	db := newTestDB(t)
	svc := newItemService(db)
	seller := seedUser(t, db, "seller1", user.RoleSeller)

	it, err := svc.Create(testCtx(), seller.ID, CreateItemRequest{
		Title: "t", Description: "d", Category: "c",
		PriceCents: 100, Stock: 1, Condition: item.ConditionFair,
		ImageURLs: []string{"/uploads/a.jpg"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(testCtx(), seller.ID, user.RoleSeller, it.ID))

	_, err = svc.Get(testCtx(), it.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	imgs, err := svc.ListImages(testCtx(), it.ID)
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestListItemsFilters(t *testing.T) {
	db := newTestDB(t)
	svc := newItemService(db)
	seller := seedUser(t, db, "seller1", user.RoleSeller)

	seed := []struct {
		title      string
		category   string
		priceCents int64
	}{
		{"Walkman TPS-L2", "electronics", 30000},
		{"Polaroid SX-70", "cameras", 18000},
		{"Rolleiflex 2.8F", "cameras", 250000},
	}
	for _, s := range seed {
		_, err := svc.Create(testCtx(), seller.ID, CreateItemRequest{
			Title: s.title, Description: "vintage", Category: s.category,
			PriceCents: s.priceCents, Stock: 1, Condition: item.ConditionGood,
		})
		require.NoError(t, err)
	}

	list, total, err := svc.List(testCtx(), item.ListFilter{Category: "cameras", Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = svc.List(testCtx(), item.ListFilter{MaxPriceCents: 50000, Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	list, _, err = svc.List(testCtx(), item.ListFilter{Search: "polaroid", Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Polaroid SX-70", list[0].Title)

	// 价格升序
	list, _, err = svc.List(testCtx(), item.ListFilter{Sort: item.SortPriceLow, Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(18000), list[0].PriceCents)
	assert.Equal(t, int64(250000), list[2].PriceCents)

	// 聚合字段跟着带出来
	assert.NotNil(t, list[0].Seller)
	assert.Equal(t, "seller1", list[0].Seller.Username)
}

func TestRevenueReport(t *testing.T) {
	db := newTestDB(t)
	svc := newItemService(db)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 10)

	now := time.Now()
	mk := func(totalCents int64, status string, at time.Time) {
		o := &order.Order{
			OrderNumber:       newOrderNumber(),
			ItemID:            it.ID,
			BuyerID:           buyer.ID,
			SellerID:          seller.ID,
			Quantity:          1,
			PricePerItemCents: totalCents,
			TotalCents:        totalCents,
			Status:            status,
			CreatedAt:         at,
		}
		require.NoError(t, db.Create(o).Error)
	}

	mk(5000, order.StatusDelivered, now.Add(-24*time.Hour)) // 当前窗口
	mk(3000, order.StatusShipped, now.Add(-24*time.Hour))   // 当前窗口
	mk(1000, order.StatusPending, now.Add(-24*time.Hour))   // 不计入
	mk(4000, order.StatusDelivered, now.Add(-8*24*time.Hour)) // 上一窗口

	rep, err := svc.Revenue(testCtx(), seller.ID, now.Add(-7*24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), rep.RevenueCents)
	assert.Equal(t, int64(4000), rep.PriorRevenueCents)
	assert.InDelta(t, 100.0, rep.ChangePercent, 0.001)

	// 窗口非法
	_, err = svc.Revenue(testCtx(), seller.ID, now, now)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSellerDashboard(t *testing.T) {
	db := newTestDB(t)
	svc := newItemService(db)
	orderSvc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)

	it := seedItem(t, db, seller.ID, 2000, 1)
	seedItem(t, db, seller.ID, 500, 3)

	o, err := orderSvc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)
	_, err = orderSvc.Confirm(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)
	_, err = orderSvc.Deliver(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)

	st, err := svc.SellerDashboard(testCtx(), seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalItems)
	assert.Equal(t, int64(1), st.ActiveItems)
	assert.Equal(t, int64(1), st.SoldItems)
	assert.Equal(t, int64(2000), st.TotalRevenueCents)
}
