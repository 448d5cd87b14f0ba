package rating

import (
	"context"
	"time"
)

// Rating 商品评分。每个用户对同一商品只能评一次，(user_id, item_id) 唯一。
type Rating struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"uniqueIndex:idx_user_item;not null" json:"user_id"`
	ItemID    int64     `gorm:"uniqueIndex:idx_user_item;index;not null" json:"item_id"`
	SellerID  int64     `gorm:"index;not null" json:"seller_id"` // 创建时冗余，便于卖家侧聚合
	OrderID   int64     `gorm:"index" json:"order_id,omitempty"` // 可选关联订单
	Rating    int       `gorm:"not null" json:"rating"`          // 1~5
	Review    string    `gorm:"type:text" json:"review,omitempty"`
	PhotoURL  string    `gorm:"size:500" json:"photo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary 商品评分聚合
type Summary struct {
	Average float64 `json:"average"` // 保留 1 位小数
	Count   int64   `json:"count"`
}

// Repository 评分仓储接口
type Repository interface {
	Create(ctx context.Context, r *Rating) error
	GetByUserItem(ctx context.Context, userID, itemID int64) (*Rating, error)
	ListByItem(ctx context.Context, itemID int64) ([]*Rating, error)
	Summarize(ctx context.Context, itemID int64) (*Summary, error)
}
