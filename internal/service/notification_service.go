package service

import (
	"context"
	"fmt"
	"time"

	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/message"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
)

const notificationLimit = 20

// Notification 读侧派生的通知视图，没有落库的通知实体
type Notification struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	OrderID     int64      `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	ItemTitle   string     `json:"item_title"`
	Partner     string     `json:"partner"` // 买家视角是卖家名，卖家视角是买家名
	AmountCents int64      `json:"amount_cents"`
	Status      string     `json:"status"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NotificationService 无状态通知投影：每次读取都从订单/消息表即时计算
type NotificationService struct {
	orderRepo   order.Repository
	itemRepo    item.Repository
	userRepo    user.Repository
	messageRepo message.Repository
}

// NewNotificationService 创建通知服务
func NewNotificationService(orderRepo order.Repository, itemRepo item.Repository, userRepo user.Repository, messageRepo message.Repository) *NotificationService {
	return &NotificationService{
		orderRepo:   orderRepo,
		itemRepo:    itemRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
	}
}

// BuyerCount 买家视角：已确认订单数，不受列表条数上限影响
func (s *NotificationService) BuyerCount(ctx context.Context, buyerID int64) (int64, error) {
	return s.orderRepo.CountByBuyerStatus(ctx, buyerID, []string{order.StatusConfirmed})
}

// BuyerList 买家视角："你的订单已被确认"
func (s *NotificationService) BuyerList(ctx context.Context, buyerID int64) ([]*Notification, error) {
	orders, err := s.orderRepo.ListByBuyerStatus(ctx, buyerID, []string{order.StatusConfirmed}, notificationLimit)
	if err != nil {
		return nil, err
	}

	out := make([]*Notification, 0, len(orders))
	for _, o := range orders {
		n := &Notification{
			ID:          o.ID,
			Type:        "order_confirmed",
			Title:       "Order Confirmed",
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			AmountCents: o.TotalCents,
			Status:      o.Status,
			ConfirmedAt: o.ConfirmedAt,
			CreatedAt:   o.CreatedAt,
		}
		itemTitle := s.itemTitle(ctx, o.ItemID)
		sellerName := s.username(ctx, o.SellerID)
		n.ItemTitle = itemTitle
		n.Partner = sellerName
		n.Message = fmt.Sprintf("Your order for %q has been confirmed by %s", itemTitle, sellerName)
		out = append(out, n)
	}
	return out, nil
}

// SellerCount 卖家视角：新订单 + 已送达订单数，不受列表条数上限影响
func (s *NotificationService) SellerCount(ctx context.Context, sellerID int64) (int64, error) {
	return s.orderRepo.CountBySellerStatus(ctx, sellerID,
		[]string{order.StatusPending, order.StatusDelivered})
}

// SellerList 卖家视角：新订单与已送达订单提醒
func (s *NotificationService) SellerList(ctx context.Context, sellerID int64) ([]*Notification, error) {
	orders, err := s.orderRepo.ListBySellerStatus(ctx, sellerID,
		[]string{order.StatusPending, order.StatusDelivered}, notificationLimit)
	if err != nil {
		return nil, err
	}

	out := make([]*Notification, 0, len(orders))
	for _, o := range orders {
		itemTitle := s.itemTitle(ctx, o.ItemID)
		buyerName := s.username(ctx, o.BuyerID)
		n := &Notification{
			ID:          o.ID,
			Type:        "order_" + o.Status,
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			ItemTitle:   itemTitle,
			Partner:     buyerName,
			AmountCents: o.TotalCents,
			Status:      o.Status,
			DeliveredAt: o.DeliveredAt,
			CreatedAt:   o.CreatedAt,
		}
		if o.Status == order.StatusPending {
			n.Title = "New Order Received"
			n.Message = fmt.Sprintf("You have a new order from %s for %q", buyerName, itemTitle)
		} else {
			n.Title = "Order Delivered"
			n.Message = fmt.Sprintf("Order #%s for %q has been delivered", o.OrderNumber, itemTitle)
		}
		out = append(out, n)
	}
	return out, nil
}

// SellerUnreadMessages 卖家未读私信数
func (s *NotificationService) SellerUnreadMessages(ctx context.Context, sellerID int64) (int64, error) {
	return s.messageRepo.UnreadCount(ctx, sellerID)
}

// MarkSeen 目前没有已读落库，保持成功空操作（与源系统一致的占位端点）
func (s *NotificationService) MarkSeen(ctx context.Context, userID int64) error {
	return nil
}

func (s *NotificationService) itemTitle(ctx context.Context, itemID int64) string {
	if it, err := s.itemRepo.GetByID(ctx, itemID); err == nil {
		return it.Title
	}
	return ""
}

func (s *NotificationService) username(ctx context.Context, userID int64) string {
	if u, err := s.userRepo.GetByID(ctx, userID); err == nil {
		return u.Username
	}
	return ""
}
