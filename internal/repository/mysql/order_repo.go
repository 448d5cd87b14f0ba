package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
)

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepo{db: db}
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) ListByBuyer(ctx context.Context, buyerID int64) ([]*order.Order, error) {
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) ListBySeller(ctx context.Context, sellerID int64) ([]*order.Order, error) {
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) ListBySellerStatus(ctx context.Context, sellerID int64, statuses []string, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Where("seller_id = ? AND status IN ?", sellerID, statuses).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) ListByBuyerStatus(ctx context.Context, buyerID int64, statuses []string, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND status IN ?", buyerID, statuses).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) CountBySellerStatus(ctx context.Context, sellerID int64, statuses []string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("seller_id = ? AND status IN ?", sellerID, statuses).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *orderRepo) CountByBuyerStatus(ctx context.Context, buyerID int64, statuses []string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("buyer_id = ? AND status IN ?", buyerID, statuses).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *orderRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.Status] = rr.Count
	}
	return out, nil
}

func (r *orderRepo) SoldQuantity(ctx context.Context, itemID int64) (int64, error) {
	var sum *int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Select("sum(quantity)").
		Where("item_id = ? AND status = ?", itemID, order.StatusDelivered).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *orderRepo) CountByItem(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Where("item_id = ?", itemID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *orderRepo) RevenueInWindow(ctx context.Context, sellerID int64, from, to time.Time) (int64, error) {
	var sum *int64
	if err := r.db.WithContext(ctx).Model(&order.Order{}).
		Select("sum(total_cents)").
		Where("seller_id = ? AND status IN ? AND created_at >= ? AND created_at < ?",
			sellerID, []string{order.StatusDelivered, order.StatusShipped}, from, to).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
