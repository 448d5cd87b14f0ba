package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/apperr"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/message"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
)

// CanMessage 角色间可否私信：卖家只跟普通用户聊，普通用户可联系卖家和管理员，
// 管理员可联系用户和卖家。每次发送/拉取会话前都要过这个检查。
func CanMessage(senderRole, receiverRole string) bool {
	switch senderRole {
	case user.RoleSeller:
		return receiverRole == user.RoleUser
	case user.RoleUser:
		return receiverRole == user.RoleSeller || receiverRole == user.RoleAdmin
	case user.RoleAdmin:
		return receiverRole == user.RoleUser || receiverRole == user.RoleSeller
	default:
		return false
	}
}

// MessageService 用户间私信
type MessageService struct {
	repo     message.Repository
	userRepo user.Repository
}

// NewMessageService 创建私信服务
func NewMessageService(repo message.Repository, userRepo user.Repository) *MessageService {
	return &MessageService{repo: repo, userRepo: userRepo}
}

// Send 发送一条消息，可选关联商品/订单上下文
func (s *MessageService) Send(ctx context.Context, senderID, receiverID int64, body string, itemID, orderID int64) (*message.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.New(apperr.KindValidation, "message cannot be empty")
	}
	if senderID == receiverID {
		return nil, apperr.New(apperr.KindSelfAction, "cannot send message to yourself")
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "receiver not found")
		}
		return nil, err
	}
	if !CanMessage(sender.Role, receiver.Role) {
		return nil, apperr.Newf(apperr.KindForbidden, "%s cannot message %s", sender.Role, receiver.Role)
	}

	m := &message.Message{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		ItemID:         itemID,
		OrderID:        orderID,
		Body:           body,
		IsSenderRead:   true, // 发出去即视为自己已读
		IsReceiverRead: false,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

type convKey struct {
	partnerID int64
	itemID    int64
}

// Conversations 按 (对方, 商品) 分组的会话列表，每组只保留最新一条，
// 未读数按接收方读标记统计，整体按最近消息时间倒序。
func (s *MessageService) Conversations(ctx context.Context, userID int64) ([]*message.Conversation, error) {
	msgs, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[convKey]*message.Conversation)
	for _, m := range msgs {
		partnerID := m.ReceiverID
		if m.ReceiverID == userID {
			partnerID = m.SenderID
		}
		key := convKey{partnerID: partnerID, itemID: m.ItemID}

		c, ok := byKey[key]
		if !ok {
			// 消息按时间倒序，组内第一条就是最新的
			c = &message.Conversation{
				PartnerID:     partnerID,
				ItemID:        m.ItemID,
				LastMessage:   m.Body,
				LastMessageAt: m.CreatedAt,
				IsLastMine:    m.SenderID == userID,
			}
			byKey[key] = c
		}
		if m.ReceiverID == userID && !m.IsReceiverRead {
			c.UnreadCount++
		}
	}

	out := make([]*message.Conversation, 0, len(byKey))
	for _, c := range byKey {
		if partner, err := s.userRepo.GetByID(ctx, c.PartnerID); err == nil {
			c.PartnerUsername = partner.Username
			c.PartnerRole = partner.Role
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

// ConversationPage 单个会话的消息分页
type ConversationPage struct {
	Messages []*message.Message `json:"messages"`
	Partner  user.PublicProfile `json:"partner"`
	Total    int64              `json:"total"`
}

// Conversation 拉取与某个用户的消息并把自己的入站消息置为已读
func (s *MessageService) Conversation(ctx context.Context, userID, partnerID, itemID int64, page, perPage int) (*ConversationPage, error) {
	partner, err := s.userRepo.GetByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "partner not found")
		}
		return nil, err
	}

	me, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !CanMessage(me.Role, partner.Role) {
		return nil, apperr.Newf(apperr.KindForbidden, "%s cannot message %s", me.Role, partner.Role)
	}

	msgs, total, err := s.repo.ListBetween(ctx, userID, partnerID, itemID, page, perPage)
	if err != nil {
		return nil, err
	}
	// 只动自己这一侧的读标记
	if _, err := s.repo.MarkReceiverRead(ctx, userID, partnerID); err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.ReceiverID == userID {
			m.IsReceiverRead = true
		}
	}

	return &ConversationPage{
		Messages: msgs,
		Partner:  partner.Public(),
		Total:    total,
	}, nil
}

// MarkRead 把来自 senderID 的未读消息全部置为已读，返回条数
func (s *MessageService) MarkRead(ctx context.Context, userID, senderID int64) (int64, error) {
	if senderID <= 0 {
		return 0, apperr.New(apperr.KindValidation, "sender_id is required")
	}
	return s.repo.MarkReceiverRead(ctx, userID, senderID)
}

// UnreadCount 当前用户的未读消息总数
func (s *MessageService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}
