package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
)

type itemRepo struct {
	db *gorm.DB
}

// NewItemRepository 创建商品仓储
func NewItemRepository(db *gorm.DB) item.Repository {
	return &itemRepo{db: db}
}

func (r *itemRepo) GetByID(ctx context.Context, id int64) (*item.Item, error) {
	var it item.Item
	if err := r.db.WithContext(ctx).First(&it, id).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) List(ctx context.Context, f item.ListFilter) ([]*item.Item, int64, error) {
	q := r.db.WithContext(ctx).Model(&item.Item{})

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	} else {
		q = q.Where("status = ?", item.StatusActive)
	}
	if f.SellerID > 0 {
		q = q.Where("seller_id = ?", f.SellerID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Condition != "" {
		q = q.Where("`condition` = ?", f.Condition)
	}
	if f.MinPriceCents > 0 {
		q = q.Where("price_cents >= ?", f.MinPriceCents)
	}
	if f.MaxPriceCents > 0 {
		q = q.Where("price_cents <= ?", f.MaxPriceCents)
	}
	if f.Search != "" {
		kw := "%" + f.Search + "%"
		q = q.Where("title LIKE ? OR description LIKE ? OR category LIKE ?", kw, kw, kw)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch f.Sort {
	case item.SortOldest:
		q = q.Order("created_at ASC")
	case item.SortPriceLow:
		q = q.Order("price_cents ASC")
	case item.SortPriceHigh:
		q = q.Order("price_cents DESC")
	default: // newest
		q = q.Order("created_at DESC")
	}

	page, perPage := f.Page, f.PerPage
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 10
	}

	var list []*item.Item
	if err := q.Offset((page - 1) * perPage).Limit(perPage).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *itemRepo) Create(ctx context.Context, it *item.Item) error {
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *itemRepo) Update(ctx context.Context, it *item.Item) error {
	return r.db.WithContext(ctx).Save(it).Error
}

// Delete 硬删除商品及其图片（与源系统一致，没有软删除）
func (r *itemRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&item.Image{}).Error; err != nil {
			return err
		}
		return tx.Delete(&item.Item{}, id).Error
	})
}

func (r *itemRepo) AddImage(ctx context.Context, img *item.Image) error {
	return r.db.WithContext(ctx).Create(img).Error
}

func (r *itemRepo) ListImages(ctx context.Context, itemID int64) ([]*item.Image, error) {
	var list []*item.Image
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("is_primary DESC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *itemRepo) PrimaryImage(ctx context.Context, itemID int64) (*item.Image, error) {
	var img item.Image
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("is_primary DESC, id ASC").
		First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &img, nil
}

func (r *itemRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countByStatus(ctx, 0)
}

func (r *itemRepo) CountBySeller(ctx context.Context, sellerID int64) (map[string]int64, error) {
	return r.countByStatus(ctx, sellerID)
}

func (r *itemRepo) countByStatus(ctx context.Context, sellerID int64) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	q := r.db.WithContext(ctx).Model(&item.Item{}).
		Select("status, count(*) as count").
		Group("status")
	if sellerID > 0 {
		q = q.Where("seller_id = ?", sellerID)
	}
	var rows []row
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rr := range rows {
		out[rr.Status] = rr.Count
	}
	return out, nil
}
