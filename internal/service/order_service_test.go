package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDev428/rarevault-e-comm/internal/apperr"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
	"github.com/LeeDev428/rarevault-e-comm/internal/repository/mysql"
)

func TestPlaceOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 3)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, int64(2), o.Quantity)
	assert.Equal(t, int64(1000), o.PricePerItemCents)
	assert.Equal(t, int64(2000), o.TotalCents)
	assert.Equal(t, seller.ID, o.SellerID)
	assert.NotEmpty(t, o.OrderNumber)

	got := reloadItem(t, db, it.ID)
	assert.Equal(t, int64(1), got.Stock)
	assert.Equal(t, item.StatusActive, got.Status)
}

func TestPlaceOrderDrainsStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 500, 2)

	_, err := svc.Place(testCtx(), buyer.ID, it.ID, 2)
	require.NoError(t, err)

	got := reloadItem(t, db, it.ID)
	assert.Equal(t, int64(0), got.Stock)
	assert.Equal(t, item.StatusOutOfStock, got.Status)

	// 售罄后再下单：商品已不可售
	_, err = svc.Place(testCtx(), buyer.ID, it.ID, 1)
	assert.Equal(t, apperr.KindItemUnavailable, apperr.KindOf(err))
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	other := seedUser(t, db, "buyer2", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 3)

	_, err := svc.Place(testCtx(), buyer.ID, it.ID, 2)
	require.NoError(t, err)

	// 剩 1 件，再要 2 件必须失败，且库存不被动过
	_, err = svc.Place(testCtx(), other.ID, it.ID, 2)
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))

	got := reloadItem(t, db, it.ID)
	assert.Equal(t, int64(1), got.Stock)
	assert.Equal(t, item.StatusActive, got.Status)
}

func TestPlaceOrderValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	it := seedItem(t, db, seller.ID, 1000, 5)

	_, err := svc.Place(testCtx(), seller.ID+100, it.ID, 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Place(testCtx(), seller.ID+100, 99999, 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// 卖家买自己的商品
	_, err = svc.Place(testCtx(), seller.ID, it.ID, 1)
	assert.Equal(t, apperr.KindSelfAction, apperr.KindOf(err))

	got := reloadItem(t, db, it.ID)
	assert.Equal(t, int64(5), got.Stock)
}

func TestConfirmOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 3)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)

	got, err := svc.Confirm(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, got.Status)
	assert.NotNil(t, got.ConfirmedAt)

	// 确认不影响库存
	assert.Equal(t, int64(2), reloadItem(t, db, it.ID).Stock)

	// 重复确认是非法迁移
	_, err = svc.Confirm(testCtx(), seller.ID, o.ID)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestDeclineRestoresStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 2)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, item.StatusOutOfStock, reloadItem(t, db, it.ID).Status)

	got, err := svc.Decline(testCtx(), seller.ID, o.ID, "damaged in storage")
	require.NoError(t, err)
	assert.Equal(t, order.StatusDeclined, got.Status)
	assert.Equal(t, "damaged in storage", got.Reason)
	assert.NotNil(t, got.DeclinedAt)

	// 库存加回且商品重新可售
	after := reloadItem(t, db, it.ID)
	assert.Equal(t, int64(2), after.Stock)
	assert.Equal(t, item.StatusActive, after.Status)
}

func TestCancelFromConfirmed(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 3)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)
	_, err = svc.Confirm(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)

	got, err := svc.Cancel(testCtx(), seller.ID, o.ID, "buyer unreachable")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, got.Status)
	assert.NotNil(t, got.CancelledAt)
	assert.Equal(t, int64(3), reloadItem(t, db, it.ID).Stock)
}

func TestShipAndDeliver(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 1)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)

	shipped, err := svc.Ship(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, shipped.Status)
	assert.NotNil(t, shipped.ShippedAt)

	delivered, err := svc.Deliver(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	// 送达后商品标记为 sold
	assert.Equal(t, item.StatusSold, reloadItem(t, db, it.ID).Status)
}

func TestShipOnDeclinedIsInvalid(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 1)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)
	_, err = svc.Decline(testCtx(), seller.ID, o.ID, "")
	require.NoError(t, err)

	_, err = svc.Ship(testCtx(), seller.ID, o.ID)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	// 失败的迁移不改变任何状态
	got, err := svc.GetForUser(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDeclined, got.Status)
	assert.Nil(t, got.ShippedAt)
}

func TestMarkReceived(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 1)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)

	// pending 状态买家不能确认收货
	_, err = svc.MarkReceived(testCtx(), buyer.ID, o.ID)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	_, err = svc.Confirm(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)

	got, err := svc.MarkReceived(testCtx(), buyer.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, got.Status)
	assert.Equal(t, item.StatusSold, reloadItem(t, db, it.ID).Status)
}

func TestTransitionOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	stranger := seedUser(t, db, "stranger", user.RoleSeller)
	it := seedItem(t, db, seller.ID, 1000, 1)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)

	// 其他卖家不能操作
	_, err = svc.Confirm(testCtx(), stranger.ID, o.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// 买家不能走卖家迁移
	_, err = svc.Deliver(testCtx(), buyer.ID, o.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// 卖家不能替买家确认收货
	_, err = svc.Confirm(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)
	_, err = svc.MarkReceived(testCtx(), seller.ID, o.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestGetForUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	stranger := seedUser(t, db, "stranger", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 1)

	o, err := svc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)

	for _, uid := range []int64{buyer.ID, seller.ID} {
		got, err := svc.GetForUser(testCtx(), uid, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
	}

	_, err = svc.GetForUser(testCtx(), stranger.ID, o.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.GetForUser(testCtx(), buyer.ID, 99999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListForBuyerAndSeller(t *testing.T) {
	db := newTestDB(t)
	svc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	it := seedItem(t, db, seller.ID, 1000, 5)

	for i := 0; i < 3; i++ {
		_, err := svc.Place(testCtx(), buyer.ID, it.ID, 1)
		require.NoError(t, err)
	}

	buyerOrders, err := svc.ListForBuyer(testCtx(), buyer.ID)
	require.NoError(t, err)
	assert.Len(t, buyerOrders, 3)

	sellerOrders, err := svc.ListForSeller(testCtx(), seller.ID)
	require.NoError(t, err)
	assert.Len(t, sellerOrders, 3)

	none, err := svc.ListForBuyer(testCtx(), seller.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}
