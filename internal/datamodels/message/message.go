package message

import (
	"context"
	"time"
)

// Message 用户间私信。读标记按方向各存一份：接收方已读之外，
// 发送方也能看到"对方是否已读"的语义。消息创建后除读标记外不可变。
type Message struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	SenderID       int64     `gorm:"index;not null" json:"sender_id"`
	ReceiverID     int64     `gorm:"index;not null" json:"receiver_id"`
	ItemID         int64     `gorm:"index" json:"item_id,omitempty"`  // 0 表示不关联商品
	OrderID        int64     `gorm:"index" json:"order_id,omitempty"` // 0 表示不关联订单
	Body           string    `gorm:"size:2000;not null" json:"body"`
	IsSenderRead   bool      `gorm:"default:true" json:"is_sender_read"`
	IsReceiverRead bool      `gorm:"default:false" json:"is_receiver_read"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// Conversation 会话摘要：按 (对方, 商品) 分组后的最新一条消息加未读数
type Conversation struct {
	PartnerID       int64     `json:"partner_id"`
	PartnerUsername string    `json:"partner_username"`
	PartnerRole     string    `json:"partner_role"`
	ItemID          int64     `json:"item_id,omitempty"`
	LastMessage     string    `json:"last_message"`
	LastMessageAt   time.Time `json:"last_message_at"`
	UnreadCount     int64     `json:"unread_count"`
	IsLastMine      bool      `json:"is_last_message_mine"`
}

// Repository 私信仓储接口
type Repository interface {
	Create(ctx context.Context, m *Message) error
	// ListForUser 返回某用户参与的全部消息，按时间倒序，用于会话分组
	ListForUser(ctx context.Context, userID int64) ([]*Message, error)
	// ListBetween 返回双方之间的消息；itemID > 0 时限定商品上下文
	ListBetween(ctx context.Context, userID, partnerID, itemID int64, page, perPage int) ([]*Message, int64, error)
	// MarkReceiverRead 把 sender -> receiver 的未读消息置为已读，返回条数
	MarkReceiverRead(ctx context.Context, receiverID, senderID int64) (int64, error)
	UnreadCount(ctx context.Context, receiverID int64) (int64, error)
}
