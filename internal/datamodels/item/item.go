package item

import (
	"context"
	"time"
)

// 商品状态
const (
	StatusActive     = "active"
	StatusPending    = "pending"
	StatusSold       = "sold"
	StatusRemoved    = "removed"
	StatusOutOfStock = "out_of_stock"
)

// 成色
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// 列表排序键
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
)

// Item 商品模型
type Item struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SellerID    int64     `gorm:"index;not null" json:"seller_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	PriceCents  int64     `gorm:"not null" json:"price_cents"` // 分
	Stock       int64     `gorm:"not null" json:"stock"`
	Category    string    `gorm:"size:100;index" json:"category"`
	Condition   string    `gorm:"size:16;default:good" json:"condition"`
	Year        int       `json:"year,omitempty"`
	Status      string    `gorm:"size:16;index;default:active" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Image 商品图片，只保存路径，不处理图片字节
type Image struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ItemID    int64     `gorm:"index;not null" json:"item_id"`
	ImageURL  string    `gorm:"size:500;not null" json:"image_url"`
	IsPrimary bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter 商品列表筛选条件
type ListFilter struct {
	Category      string
	Search        string // 对标题/描述/分类做模糊匹配
	MinPriceCents int64
	MaxPriceCents int64
	Condition     string
	SellerID      int64  // 0 表示不限
	Status        string // 空表示仅 active
	Sort          string // newest / oldest / price_low / price_high
	Page          int
	PerPage       int
}

// Repository 商品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context, f ListFilter) ([]*Item, int64, error)
	Create(ctx context.Context, it *Item) error
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id int64) error

	AddImage(ctx context.Context, img *Image) error
	ListImages(ctx context.Context, itemID int64) ([]*Image, error)
	PrimaryImage(ctx context.Context, itemID int64) (*Image, error)

	CountByStatus(ctx context.Context) (map[string]int64, error)
	CountBySeller(ctx context.Context, sellerID int64) (map[string]int64, error)
}
