package mysql

import (
	"context"
	"math"

	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/rating"
)

type ratingRepo struct {
	db *gorm.DB
}

// NewRatingRepository 创建评分仓储
func NewRatingRepository(db *gorm.DB) rating.Repository {
	return &ratingRepo{db: db}
}

func (r *ratingRepo) Create(ctx context.Context, rt *rating.Rating) error {
	return r.db.WithContext(ctx).Create(rt).Error
}

func (r *ratingRepo) GetByUserItem(ctx context.Context, userID, itemID int64) (*rating.Rating, error) {
	var rt rating.Rating
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *ratingRepo) ListByItem(ctx context.Context, itemID int64) ([]*rating.Rating, error) {
	var list []*rating.Rating
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Summarize 计算商品评分均值（展示用，保留 1 位小数）与条数
func (r *ratingRepo) Summarize(ctx context.Context, itemID int64) (*rating.Summary, error) {
	type row struct {
		Avg   *float64
		Count int64
	}
	var res row
	if err := r.db.WithContext(ctx).Model(&rating.Rating{}).
		Select("avg(rating) as avg, count(*) as count").
		Where("item_id = ?", itemID).
		Scan(&res).Error; err != nil {
		return nil, err
	}
	s := &rating.Summary{Count: res.Count}
	if res.Avg != nil {
		s.Average = math.Round(*res.Avg*10) / 10
	}
	return s, nil
}
