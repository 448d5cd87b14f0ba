package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/apperr"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/rating"
	"github.com/LeeDev428/rarevault-e-comm/internal/infra/mq"
)

// RatingService 购买后评分。(用户, 商品) 只允许一条评分，无论下过多少单。
type RatingService struct {
	db        *gorm.DB
	repo      rating.Repository
	itemRepo  item.Repository
	orderRepo order.Repository
	events    *mq.Publisher
}

// NewRatingService 创建评分服务
func NewRatingService(db *gorm.DB, repo rating.Repository, itemRepo item.Repository, orderRepo order.Repository, events *mq.Publisher) *RatingService {
	return &RatingService{
		db:        db,
		repo:      repo,
		itemRepo:  itemRepo,
		orderRepo: orderRepo,
		events:    events,
	}
}

// SubmitRatingRequest 评分命令
type SubmitRatingRequest struct {
	UserID   int64
	ItemID   int64
	OrderID  int64 // 可选
	Rating   int
	Review   string
	PhotoURL string
}

// Submit 提交评分。携带 order_id 时校验订单卖家与商品卖家一致；
// 不校验订单是否已送达、也不校验订单归属评分人（沿用源系统行为，见 DESIGN.md）。
func (s *RatingService) Submit(ctx context.Context, req SubmitRatingRequest) (*rating.Rating, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.New(apperr.KindValidation, "rating must be between 1 and 5")
	}

	it, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "item not found")
		}
		return nil, err
	}

	if req.OrderID > 0 {
		o, err := s.orderRepo.GetByID(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.KindNotFound, "order not found")
			}
			return nil, err
		}
		if o.SellerID != it.SellerID {
			return nil, apperr.New(apperr.KindValidation, "order does not match item seller")
		}
	}

	var created *rating.Rating
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing rating.Rating
		err := tx.Where("user_id = ? AND item_id = ?", req.UserID, req.ItemID).
			First(&existing).Error
		if err == nil {
			return apperr.New(apperr.KindDuplicateRating, "you have already rated this item")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		r := &rating.Rating{
			UserID:   req.UserID,
			ItemID:   req.ItemID,
			SellerID: it.SellerID,
			OrderID:  req.OrderID,
			Rating:   req.Rating,
			Review:   req.Review,
			PhotoURL: req.PhotoURL,
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		err := s.events.Publish(ctx, &mq.Event{
			Type:     mq.EventRatingSubmitted,
			ItemID:   created.ItemID,
			SellerID: created.SellerID,
		})
		if err != nil {
			GetMonitor().RecordMQError()
			zap.L().Warn("publish rating event failed", zap.Int64("item_id", created.ItemID), zap.Error(err))
		}
	}
	return created, nil
}

// Summary 商品评分均值与条数
func (s *RatingService) Summary(ctx context.Context, itemID int64) (*rating.Summary, error) {
	return s.repo.Summarize(ctx, itemID)
}

// ListByItem 商品评分列表
func (s *RatingService) ListByItem(ctx context.Context, itemID int64) ([]*rating.Rating, error) {
	return s.repo.ListByItem(ctx, itemID)
}
