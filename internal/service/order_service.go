package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LeeDev428/rarevault-e-comm/internal/apperr"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/infra/mq"
)

const redisOrderDebounceKey = "order:debounce:%d:%d" // buyerID, itemID

// OrderService 订单状态机。所有写操作都在单个事务里完成，
// 库存的读-改-写通过 SELECT ... FOR UPDATE 行锁串行化，并发下不会超卖。
type OrderService struct {
	db       *gorm.DB
	repo     order.Repository
	redis    radix.Client
	events   *mq.Publisher
	debounce time.Duration
}

// NewOrderService 创建订单服务。redis 与 events 允许为 nil（去抖与事件发布退化为空操作）。
func NewOrderService(db *gorm.DB, repo order.Repository, redis radix.Client, events *mq.Publisher, debounce time.Duration) *OrderService {
	if debounce <= 0 {
		debounce = 60 * time.Second
	}
	return &OrderService{
		db:       db,
		repo:     repo,
		redis:    redis,
		events:   events,
		debounce: debounce,
	}
}

func newOrderNumber() string {
	return "RV-" + ulid.Make().String()
}

// Place 买家下单：锁定商品行，校验可售状态与库存，扣减库存并创建 pending 订单。
// 同一 (买家, 商品) 在去抖窗口内重复提交时直接返回先前的订单，不新建。
func (s *OrderService) Place(ctx context.Context, buyerID, itemID, qty int64) (*order.Order, error) {
	GetMonitor().RecordOrderRequest()
	if qty <= 0 {
		return nil, apperr.New(apperr.KindValidation, "quantity must be greater than 0")
	}

	if prior := s.debouncedOrder(ctx, buyerID, itemID); prior != nil {
		return prior, nil
	}

	var placed *order.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it item.Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&it, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "item not found")
			}
			return err
		}
		if it.SellerID == buyerID {
			return apperr.New(apperr.KindSelfAction, "cannot purchase your own item")
		}
		if it.Status != item.StatusActive {
			return apperr.Newf(apperr.KindItemUnavailable, "item is %s", it.Status)
		}
		if it.Stock < qty {
			GetMonitor().RecordStockMiss()
			return apperr.Newf(apperr.KindInsufficientStock, "only %d in stock", it.Stock)
		}

		it.Stock -= qty
		if it.Stock == 0 {
			it.Status = item.StatusOutOfStock
		}
		if err := tx.Save(&it).Error; err != nil {
			return err
		}

		o := order.Order{
			OrderNumber:       newOrderNumber(),
			ItemID:            it.ID,
			BuyerID:           buyerID,
			SellerID:          it.SellerID, // 快照，后续商品变更不影响订单
			Quantity:          qty,
			PricePerItemCents: it.PriceCents,
			TotalCents:        it.PriceCents * qty,
			Status:            order.StatusPending,
		}
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		placed = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	GetMonitor().RecordOrderPlaced()
	s.rememberOrder(ctx, buyerID, itemID, placed.ID)
	s.publish(ctx, mq.EventOrderPlaced, placed)
	return placed, nil
}

// debouncedOrder 查询去抖窗口内已创建的订单，没有则返回 nil
func (s *OrderService) debouncedOrder(ctx context.Context, buyerID, itemID int64) *order.Order {
	if s.redis == nil {
		return nil
	}
	key := fmt.Sprintf(redisOrderDebounceKey, buyerID, itemID)
	var stored string
	if err := s.redis.Do(radix.Cmd(&stored, "GET", key)); err != nil {
		GetMonitor().RecordRedisError()
		return nil
	}
	if stored == "" {
		return nil
	}
	orderID, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		return nil
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil
	}
	return o
}

func (s *OrderService) rememberOrder(ctx context.Context, buyerID, itemID, orderID int64) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf(redisOrderDebounceKey, buyerID, itemID)
	if err := s.redis.Do(radix.FlatCmd(nil, "SETEX", key, int64(s.debounce/time.Second), orderID)); err != nil {
		GetMonitor().RecordRedisError()
	}
}

// Confirm 卖家确认订单（pending -> confirmed）。不改商品状态：库存已在下单时保留，
// 其他买家仍可继续下单。
func (s *OrderService) Confirm(ctx context.Context, sellerID, orderID int64) (*order.Order, error) {
	return s.transition(ctx, orderID, transitionSpec{
		actorID:  sellerID,
		bySeller: true,
		from:     []string{order.StatusPending},
		to:       order.StatusConfirmed,
		event:    mq.EventOrderConfirmed,
		apply: func(o *order.Order, now time.Time) {
			o.ConfirmedAt = &now
		},
	})
}

// Decline 卖家拒绝订单（pending -> declined）：库存加回，商品状态重置为 active，
// 即使之前已经 out_of_stock 也重新可售。
func (s *OrderService) Decline(ctx context.Context, sellerID, orderID int64, reason string) (*order.Order, error) {
	return s.transition(ctx, orderID, transitionSpec{
		actorID:      sellerID,
		bySeller:     true,
		from:         []string{order.StatusPending},
		to:           order.StatusDeclined,
		event:        mq.EventOrderDeclined,
		restoreStock: true,
		apply: func(o *order.Order, now time.Time) {
			o.DeclinedAt = &now
			o.Reason = reason
		},
	})
}

// Cancel 卖家取消订单（pending/confirmed -> cancelled），库存恢复逻辑与拒绝一致
func (s *OrderService) Cancel(ctx context.Context, sellerID, orderID int64, reason string) (*order.Order, error) {
	return s.transition(ctx, orderID, transitionSpec{
		actorID:      sellerID,
		bySeller:     true,
		from:         []string{order.StatusPending, order.StatusConfirmed},
		to:           order.StatusCancelled,
		event:        mq.EventOrderCancelled,
		restoreStock: true,
		apply: func(o *order.Order, now time.Time) {
			o.CancelledAt = &now
			o.Reason = reason
		},
	})
}

// Ship 卖家发货。终态以及已送达的订单不能再发货。
func (s *OrderService) Ship(ctx context.Context, sellerID, orderID int64) (*order.Order, error) {
	return s.transition(ctx, orderID, transitionSpec{
		actorID:  sellerID,
		bySeller: true,
		from:     []string{order.StatusPending, order.StatusConfirmed},
		to:       order.StatusShipped,
		event:    mq.EventOrderShipped,
		apply: func(o *order.Order, now time.Time) {
			o.ShippedAt = &now
		},
	})
}

// Deliver 卖家直接标记送达（confirmed/shipped -> delivered），商品置为 sold
func (s *OrderService) Deliver(ctx context.Context, sellerID, orderID int64) (*order.Order, error) {
	return s.transition(ctx, orderID, transitionSpec{
		actorID:  sellerID,
		bySeller: true,
		from:     []string{order.StatusConfirmed, order.StatusShipped},
		to:       order.StatusDelivered,
		event:    mq.EventOrderDelivered,
		markSold: true,
		apply: func(o *order.Order, now time.Time) {
			o.DeliveredAt = &now
		},
	})
}

// MarkReceived 买家确认收货（confirmed -> delivered）。
// 注意这里只认 confirmed：卖家已发货(shipped)的订单买家不能自行确认，沿用源系统行为。
func (s *OrderService) MarkReceived(ctx context.Context, buyerID, orderID int64) (*order.Order, error) {
	return s.transition(ctx, orderID, transitionSpec{
		actorID:  buyerID,
		bySeller: false,
		from:     []string{order.StatusConfirmed},
		to:       order.StatusDelivered,
		event:    mq.EventOrderDelivered,
		markSold: true,
		apply: func(o *order.Order, now time.Time) {
			o.DeliveredAt = &now
		},
	})
}

type transitionSpec struct {
	actorID      int64
	bySeller     bool // true: actor 必须是订单卖家；false: 必须是买家
	from         []string
	to           string
	event        string
	restoreStock bool // 库存加回并把商品重置为 active
	markSold     bool // 商品置为 sold
	apply        func(o *order.Order, now time.Time)
}

// transition 执行一次状态迁移。前置条件不满足时返回 InvalidTransition 且不做任何修改。
func (s *OrderService) transition(ctx context.Context, orderID int64, spec transitionSpec) (*order.Order, error) {
	var out *order.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o order.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "order not found")
			}
			return err
		}

		if spec.bySeller && o.SellerID != spec.actorID {
			return apperr.New(apperr.KindForbidden, "not the seller of this order")
		}
		if !spec.bySeller && o.BuyerID != spec.actorID {
			return apperr.New(apperr.KindForbidden, "not the buyer of this order")
		}

		allowed := false
		for _, st := range spec.from {
			if o.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			GetMonitor().RecordInvalidTransition()
			return apperr.Newf(apperr.KindInvalidTransition, "cannot move order from %s to %s", o.Status, spec.to)
		}

		now := time.Now()
		o.Status = spec.to
		spec.apply(&o, now)
		if err := tx.Save(&o).Error; err != nil {
			return err
		}

		if spec.restoreStock || spec.markSold {
			if err := s.applyItemEffect(tx, &o, spec); err != nil {
				return err
			}
		}

		out = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	GetMonitor().RecordTransition()
	s.publish(ctx, spec.event, out)
	return out, nil
}

// applyItemEffect 在同一事务内对商品行执行迁移的副作用
func (s *OrderService) applyItemEffect(tx *gorm.DB, o *order.Order, spec transitionSpec) error {
	var it item.Item
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&it, o.ItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 商品已被管理端硬删除，订单状态照常迁移
			return nil
		}
		return err
	}
	if spec.restoreStock {
		it.Stock += o.Quantity
		it.Status = item.StatusActive
	}
	if spec.markSold {
		it.Status = item.StatusSold
	}
	return tx.Save(&it).Error
}

func (s *OrderService) publish(ctx context.Context, eventType string, o *order.Order) {
	if s.events == nil || o == nil {
		return
	}
	err := s.events.Publish(ctx, &mq.Event{
		Type:     eventType,
		OrderID:  o.ID,
		ItemID:   o.ItemID,
		BuyerID:  o.BuyerID,
		SellerID: o.SellerID,
	})
	if err != nil {
		GetMonitor().RecordMQError()
		zap.L().Warn("publish order event failed",
			zap.String("type", eventType),
			zap.Int64("order_id", o.ID),
			zap.Error(err))
	}
}

// GetForUser 查询订单，只有买卖双方可见
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID int64) (*order.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "order not found")
		}
		return nil, err
	}
	if o.BuyerID != userID && o.SellerID != userID {
		return nil, apperr.New(apperr.KindForbidden, "no access to this order")
	}
	return o, nil
}

// ListForBuyer 买家订单列表
func (s *OrderService) ListForBuyer(ctx context.Context, buyerID int64) ([]*order.Order, error) {
	return s.repo.ListByBuyer(ctx, buyerID)
}

// ListForSeller 卖家订单列表
func (s *OrderService) ListForSeller(ctx context.Context, sellerID int64) ([]*order.Order, error) {
	return s.repo.ListBySeller(ctx, sellerID)
}
