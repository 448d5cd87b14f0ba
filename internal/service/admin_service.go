package service

import (
	"context"

	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
)

// AdminService 后台只读统计与用户管理，纯粹消费数据模型
type AdminService struct {
	userRepo  user.Repository
	itemRepo  item.Repository
	orderRepo order.Repository
}

// NewAdminService 创建后台服务
func NewAdminService(userRepo user.Repository, itemRepo item.Repository, orderRepo order.Repository) *AdminService {
	return &AdminService{
		userRepo:  userRepo,
		itemRepo:  itemRepo,
		orderRepo: orderRepo,
	}
}

// DashboardStats 后台首页统计
type DashboardStats struct {
	UsersByRole    map[string]int64 `json:"users_by_role"`
	ItemsByStatus  map[string]int64 `json:"items_by_status"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	TotalUsers     int64            `json:"total_users"`
	TotalItems     int64            `json:"total_items"`
	TotalOrders    int64            `json:"total_orders"`
}

// Dashboard 按角色/状态聚合的总览
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	users, err := s.userRepo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	st := &DashboardStats{
		UsersByRole:    users,
		ItemsByStatus:  items,
		OrdersByStatus: orders,
	}
	for _, n := range users {
		st.TotalUsers += n
	}
	for _, n := range items {
		st.TotalItems += n
	}
	for _, n := range orders {
		st.TotalOrders += n
	}
	return st, nil
}

// ListUsers 全部用户
func (s *AdminService) ListUsers(ctx context.Context) ([]*user.User, error) {
	return s.userRepo.ListAll(ctx)
}

// ToggleUserActive 启用/停用用户
func (s *AdminService) ToggleUserActive(ctx context.Context, userID int64) (*user.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.IsActive = !u.IsActive
	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
