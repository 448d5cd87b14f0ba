package order

import (
	"context"
	"time"
)

// 订单状态机：pending -> {confirmed, declined, cancelled}
// confirmed -> {shipped, delivered, cancelled}，shipped -> delivered，
// declined / delivered / cancelled 为终态。
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDeclined  = "declined"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Order 订单模型。SellerID 与 PricePerItemCents 在创建时从商品快照而来，
// 之后商品的任何变更都不会影响已有订单。
type Order struct {
	ID                int64      `gorm:"primaryKey" json:"id"`
	OrderNumber       string     `gorm:"uniqueIndex;size:40;not null" json:"order_number"`
	ItemID            int64      `gorm:"index;not null" json:"item_id"`
	BuyerID           int64      `gorm:"index;not null" json:"buyer_id"`
	SellerID          int64      `gorm:"index;not null" json:"seller_id"`
	Quantity          int64      `gorm:"not null" json:"quantity"`
	PricePerItemCents int64      `gorm:"not null" json:"price_per_item_cents"`
	TotalCents        int64      `gorm:"not null" json:"total_cents"`
	Status            string     `gorm:"size:16;index;not null;default:pending" json:"status"`
	Reason            string     `gorm:"size:255" json:"reason,omitempty"` // 拒绝/取消备注
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	DeclinedAt        *time.Time `json:"declined_at,omitempty"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Repository 订单仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]*Order, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]*Order, error)
	ListBySellerStatus(ctx context.Context, sellerID int64, statuses []string, limit int) ([]*Order, error)
	ListByBuyerStatus(ctx context.Context, buyerID int64, statuses []string, limit int) ([]*Order, error)
	CountBySellerStatus(ctx context.Context, sellerID int64, statuses []string) (int64, error)
	CountByBuyerStatus(ctx context.Context, buyerID int64, statuses []string) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// SoldQuantity 统计某商品已送达订单的数量之和
	SoldQuantity(ctx context.Context, itemID int64) (int64, error)
	// CountByItem 统计某商品的订单总数
	CountByItem(ctx context.Context, itemID int64) (int64, error)
	// RevenueInWindow 统计某卖家在时间窗口内 delivered/shipped 订单的总金额（分）
	RevenueInWindow(ctx context.Context, sellerID int64, from, to time.Time) (int64, error)
}
