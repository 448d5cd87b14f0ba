package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
	"github.com/LeeDev428/rarevault-e-comm/internal/repository/mysql"
)

func TestAdminDashboard(t *testing.T) {
	db := newTestDB(t)
	svc := NewAdminService(mysql.NewUserRepository(db), mysql.NewItemRepository(db), mysql.NewOrderRepository(db))
	orderSvc := NewOrderService(db, mysql.NewOrderRepository(db), nil, nil, 0)

	seedUser(t, db, "admin1", user.RoleAdmin)
	seller := seedUser(t, db, "seller1", user.RoleSeller)
	buyer := seedUser(t, db, "buyer1", user.RoleUser)
	buyer2 := seedUser(t, db, "buyer2", user.RoleUser)

	it := seedItem(t, db, seller.ID, 1000, 5)
	seedItem(t, db, seller.ID, 2000, 0) // out_of_stock

	o, err := orderSvc.Place(testCtx(), buyer.ID, it.ID, 1)
	require.NoError(t, err)
	_, err = orderSvc.Place(testCtx(), buyer2.ID, it.ID, 1)
	require.NoError(t, err)
	_, err = orderSvc.Confirm(testCtx(), seller.ID, o.ID)
	require.NoError(t, err)

	st, err := svc.Dashboard(testCtx())
	require.NoError(t, err)

	assert.Equal(t, int64(4), st.TotalUsers)
	assert.Equal(t, int64(2), st.UsersByRole[user.RoleUser])
	assert.Equal(t, int64(1), st.UsersByRole[user.RoleSeller])
	assert.Equal(t, int64(1), st.UsersByRole[user.RoleAdmin])

	assert.Equal(t, int64(2), st.TotalItems)
	assert.Equal(t, int64(1), st.ItemsByStatus[item.StatusActive])
	assert.Equal(t, int64(1), st.ItemsByStatus[item.StatusOutOfStock])

	assert.Equal(t, int64(2), st.TotalOrders)
	assert.Equal(t, int64(1), st.OrdersByStatus[order.StatusPending])
	assert.Equal(t, int64(1), st.OrdersByStatus[order.StatusConfirmed])
}

func TestToggleUserActive(t *testing.T) {
	db := newTestDB(t)
	svc := NewAdminService(mysql.NewUserRepository(db), mysql.NewItemRepository(db), mysql.NewOrderRepository(db))
	u := seedUser(t, db, "buyer1", user.RoleUser)

	got, err := svc.ToggleUserActive(testCtx(), u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	got, err = svc.ToggleUserActive(testCtx(), u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	users, err := svc.ListUsers(testCtx())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
