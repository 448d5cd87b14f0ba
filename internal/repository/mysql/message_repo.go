package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/message"
)

type messageRepo struct {
	db *gorm.DB
}

// NewMessageRepository 创建私信仓储
func NewMessageRepository(db *gorm.DB) message.Repository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, m *message.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *messageRepo) ListForUser(ctx context.Context, userID int64) ([]*message.Message, error) {
	var list []*message.Message
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *messageRepo) ListBetween(ctx context.Context, userID, partnerID, itemID int64, page, perPage int) ([]*message.Message, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 50
	}
	q := r.db.WithContext(ctx).Model(&message.Message{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, partnerID, partnerID, userID)
	if itemID > 0 {
		q = q.Where("item_id = ?", itemID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []*message.Message
	if err := q.Order("created_at ASC, id ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *messageRepo) MarkReceiverRead(ctx context.Context, receiverID, senderID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&message.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_receiver_read = ?", senderID, receiverID, false).
		Update("is_receiver_read", true)
	return res.RowsAffected, res.Error
}

func (r *messageRepo) UnreadCount(ctx context.Context, receiverID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&message.Message{}).
		Where("receiver_id = ? AND is_receiver_read = ?", receiverID, false).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
