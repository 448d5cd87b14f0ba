package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/apperr"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/rating"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
)

const (
	redisItemStatsKey = "item:stats:%d"
	itemStatsTTL      = 60 // 秒
)

var validConditions = map[string]bool{
	item.ConditionNew:     true,
	item.ConditionLikeNew: true,
	item.ConditionGood:    true,
	item.ConditionFair:    true,
	item.ConditionPoor:    true,
}

var validStatuses = map[string]bool{
	item.StatusActive:     true,
	item.StatusPending:    true,
	item.StatusSold:       true,
	item.StatusRemoved:    true,
	item.StatusOutOfStock: true,
}

// ItemService 商品目录：增删改查、筛选列表与读侧聚合（卖家信息、主图、评分、销量）。
// 聚合结果在 Redis 里缓存 60 秒，stats-worker 消费订单/评分事件后主动失效。
type ItemService struct {
	repo       item.Repository
	userRepo   user.Repository
	ratingRepo rating.Repository
	orderRepo  order.Repository
	redis      radix.Client
}

// NewItemService 创建商品服务，redis 允许为 nil（聚合不走缓存）
func NewItemService(repo item.Repository, userRepo user.Repository, ratingRepo rating.Repository, orderRepo order.Repository, redis radix.Client) *ItemService {
	return &ItemService{
		repo:       repo,
		userRepo:   userRepo,
		ratingRepo: ratingRepo,
		orderRepo:  orderRepo,
		redis:      redis,
	}
}

// CreateItemRequest 创建商品的命令
type CreateItemRequest struct {
	Title       string
	Description string
	Category    string
	PriceCents  int64
	Stock       int64
	Condition   string
	Year        int
	ImageURLs   []string
}

// UpdateItemRequest 部分更新，nil 字段不改
type UpdateItemRequest struct {
	Title       *string
	Description *string
	Category    *string
	PriceCents  *int64
	Stock       *int64
	Condition   *string
	Year        *int
	Status      *string
}

func validateYear(year int) error {
	if year == 0 {
		return nil
	}
	if year < 1000 || year > time.Now().Year()+1 {
		return apperr.Newf(apperr.KindValidation, "year %d out of range", year)
	}
	return nil
}

// Create 卖家创建商品
func (s *ItemService) Create(ctx context.Context, sellerID int64, req CreateItemRequest) (*item.Item, error) {
	switch {
	case req.Title == "":
		return nil, apperr.New(apperr.KindValidation, "title is required")
	case req.Category == "":
		return nil, apperr.New(apperr.KindValidation, "category is required")
	case req.Description == "":
		return nil, apperr.New(apperr.KindValidation, "description is required")
	case req.PriceCents <= 0:
		return nil, apperr.New(apperr.KindValidation, "price must be greater than 0")
	case req.Stock < 0:
		return nil, apperr.New(apperr.KindValidation, "stock must not be negative")
	case !validConditions[req.Condition]:
		return nil, apperr.Newf(apperr.KindValidation, "invalid condition %q", req.Condition)
	}
	if err := validateYear(req.Year); err != nil {
		return nil, err
	}

	it := &item.Item{
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Condition:   req.Condition,
		Year:        req.Year,
		Status:      item.StatusActive,
	}
	if it.Stock == 0 {
		it.Status = item.StatusOutOfStock
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}

	for i, url := range req.ImageURLs {
		img := &item.Image{ItemID: it.ID, ImageURL: url, IsPrimary: i == 0}
		if err := s.repo.AddImage(ctx, img); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// Update 部分更新商品，仅限所有者或管理员
func (s *ItemService) Update(ctx context.Context, actorID int64, actorRole string, itemID int64, req UpdateItemRequest) (*item.Item, error) {
	it, err := s.getOwned(ctx, actorID, actorRole, itemID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, apperr.New(apperr.KindValidation, "title is required")
		}
		it.Title = *req.Title
	}
	if req.Description != nil {
		it.Description = *req.Description
	}
	if req.Category != nil {
		it.Category = *req.Category
	}
	if req.PriceCents != nil {
		if *req.PriceCents <= 0 {
			return nil, apperr.New(apperr.KindValidation, "price must be greater than 0")
		}
		it.PriceCents = *req.PriceCents
	}
	if req.Condition != nil {
		if !validConditions[*req.Condition] {
			return nil, apperr.Newf(apperr.KindValidation, "invalid condition %q", *req.Condition)
		}
		it.Condition = *req.Condition
	}
	if req.Year != nil {
		if err := validateYear(*req.Year); err != nil {
			return nil, err
		}
		it.Year = *req.Year
	}
	if req.Status != nil {
		if !validStatuses[*req.Status] {
			return nil, apperr.Newf(apperr.KindValidation, "invalid status %q", *req.Status)
		}
		it.Status = *req.Status
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, apperr.New(apperr.KindValidation, "stock must not be negative")
		}
		it.Stock = *req.Stock
	}

	// stock == 0 必须体现为 out_of_stock，反向亦然
	if it.Stock == 0 && it.Status == item.StatusActive {
		it.Status = item.StatusOutOfStock
	}
	if it.Stock > 0 && it.Status == item.StatusOutOfStock {
		it.Status = item.StatusActive
	}

	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}
	s.InvalidateStats(itemID)
	return it, nil
}

// Delete 硬删除商品（所有者或管理员）
func (s *ItemService) Delete(ctx context.Context, actorID int64, actorRole string, itemID int64) error {
	if _, err := s.getOwned(ctx, actorID, actorRole, itemID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, itemID); err != nil {
		return err
	}
	s.InvalidateStats(itemID)
	return nil
}

func (s *ItemService) getOwned(ctx context.Context, actorID int64, actorRole string, itemID int64) (*item.Item, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "item not found")
		}
		return nil, err
	}
	if it.SellerID != actorID && actorRole != user.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, "not the owner of this item")
	}
	return it, nil
}

// AddImage 追加商品图片（仅存路径）
func (s *ItemService) AddImage(ctx context.Context, actorID int64, actorRole string, itemID int64, url string, primary bool) (*item.Image, error) {
	if url == "" {
		return nil, apperr.New(apperr.KindValidation, "image_url is required")
	}
	if _, err := s.getOwned(ctx, actorID, actorRole, itemID); err != nil {
		return nil, err
	}
	img := &item.Image{ItemID: itemID, ImageURL: url, IsPrimary: primary}
	if err := s.repo.AddImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

// Stats 商品读侧聚合
type Stats struct {
	Rating      rating.Summary `json:"rating"`
	SoldCount   int64          `json:"sold_count"`
	TotalOrders int64          `json:"total_orders"`
}

// EnrichedItem 列表/详情返回的商品视图
type EnrichedItem struct {
	*item.Item
	Seller       *user.PublicProfile `json:"seller,omitempty"`
	PrimaryImage string              `json:"primary_image,omitempty"`
	Stats        Stats               `json:"stats"`
}

// Get 获取单个商品（带聚合）
func (s *ItemService) Get(ctx context.Context, itemID int64) (*EnrichedItem, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "item not found")
		}
		return nil, err
	}
	return s.enrich(ctx, it)
}

// List 筛选商品列表，逐条做读侧聚合
func (s *ItemService) List(ctx context.Context, f item.ListFilter) ([]*EnrichedItem, int64, error) {
	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*EnrichedItem, 0, len(items))
	for _, it := range items {
		e, err := s.enrich(ctx, it)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, nil
}

// ListImages 商品图片列表
func (s *ItemService) ListImages(ctx context.Context, itemID int64) ([]*item.Image, error) {
	return s.repo.ListImages(ctx, itemID)
}

func (s *ItemService) enrich(ctx context.Context, it *item.Item) (*EnrichedItem, error) {
	e := &EnrichedItem{Item: it}

	if seller, err := s.userRepo.GetByID(ctx, it.SellerID); err == nil {
		p := seller.Public()
		e.Seller = &p
	}
	if img, err := s.repo.PrimaryImage(ctx, it.ID); err == nil && img != nil {
		e.PrimaryImage = img.ImageURL
	}

	stats, err := s.itemStats(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	e.Stats = *stats
	return e, nil
}

// itemStats 先查缓存，未命中再聚合并写回
func (s *ItemService) itemStats(ctx context.Context, itemID int64) (*Stats, error) {
	key := fmt.Sprintf(redisItemStatsKey, itemID)
	if s.redis != nil {
		var raw string
		if err := s.redis.Do(radix.Cmd(&raw, "GET", key)); err != nil {
			GetMonitor().RecordRedisError()
		} else if raw != "" {
			var st Stats
			if err := json.Unmarshal([]byte(raw), &st); err == nil {
				return &st, nil
			}
		}
	}

	sum, err := s.ratingRepo.Summarize(ctx, itemID)
	if err != nil {
		return nil, err
	}
	sold, err := s.orderRepo.SoldQuantity(ctx, itemID)
	if err != nil {
		return nil, err
	}
	totalOrders, err := s.orderRepo.CountByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	st := &Stats{Rating: *sum, SoldCount: sold, TotalOrders: totalOrders}

	if s.redis != nil {
		body, _ := json.Marshal(st)
		if err := s.redis.Do(radix.FlatCmd(nil, "SETEX", key, itemStatsTTL, body)); err != nil {
			GetMonitor().RecordRedisError()
		}
	}
	return st, nil
}

// InvalidateStats 删除某商品的聚合缓存，stats-worker 也会调用
func (s *ItemService) InvalidateStats(itemID int64) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf(redisItemStatsKey, itemID)
	if err := s.redis.Do(radix.Cmd(nil, "DEL", key)); err != nil {
		GetMonitor().RecordRedisError()
	}
}

// SellerStats 卖家看板统计
type SellerStats struct {
	TotalItems        int64 `json:"total_items"`
	ActiveItems       int64 `json:"active_items"`
	SoldItems         int64 `json:"sold_items"`
	PendingItems      int64 `json:"pending_items"`
	TotalRevenueCents int64 `json:"total_revenue_cents"`
}

// SellerDashboard 卖家维度的商品/收入统计
func (s *ItemService) SellerDashboard(ctx context.Context, sellerID int64) (*SellerStats, error) {
	counts, err := s.repo.CountBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	// 已送达/已发货订单的总金额，窗口取全量
	revenue, err := s.orderRepo.RevenueInWindow(ctx, sellerID, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return nil, err
	}
	return &SellerStats{
		TotalItems:        total,
		ActiveItems:       counts[item.StatusActive],
		SoldItems:         counts[item.StatusSold],
		PendingItems:      counts[item.StatusPending],
		TotalRevenueCents: revenue,
	}, nil
}

// RevenueReport 时间窗收入与环比
type RevenueReport struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	RevenueCents      int64     `json:"revenue_cents"`
	PriorRevenueCents int64     `json:"prior_revenue_cents"`
	ChangePercent     float64   `json:"change_percent"`
}

// Revenue 统计窗口内 delivered/shipped 订单总额，并与等长的前一窗口比较。
// 上个窗口为零时环比固定报 0，避免除零。
func (s *ItemService) Revenue(ctx context.Context, sellerID int64, from, to time.Time) (*RevenueReport, error) {
	if !to.After(from) {
		return nil, apperr.New(apperr.KindValidation, "invalid time window")
	}
	cur, err := s.orderRepo.RevenueInWindow(ctx, sellerID, from, to)
	if err != nil {
		return nil, err
	}
	span := to.Sub(from)
	prior, err := s.orderRepo.RevenueInWindow(ctx, sellerID, from.Add(-span), from)
	if err != nil {
		return nil, err
	}
	change := float64(0)
	if prior > 0 {
		change = (float64(cur) - float64(prior)) / float64(prior) * 100
	}
	return &RevenueReport{
		From:              from,
		To:                to,
		RevenueCents:      cur,
		PriorRevenueCents: prior,
		ChangePercent:     change,
	}, nil
}
