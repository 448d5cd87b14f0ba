package mq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const eventQueue = "rarevault_events"

// 事件类型
const (
	EventOrderPlaced     = "order_placed"
	EventOrderConfirmed  = "order_confirmed"
	EventOrderDeclined   = "order_declined"
	EventOrderShipped    = "order_shipped"
	EventOrderDelivered  = "order_delivered"
	EventOrderCancelled  = "order_cancelled"
	EventRatingSubmitted = "rating_submitted"
)

// Event 订单/评分生命周期事件，stats-worker 消费后失效商品聚合缓存
type Event struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id,omitempty"`
	ItemID     int64     `json:"item_id"`
	BuyerID    int64     `json:"buyer_id,omitempty"`
	SellerID   int64     `json:"seller_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 事件发布器。conn 为 nil 时所有发布都是空操作，方便测试
type Publisher struct {
	conn *amqp.Connection
}

// NewPublisher 创建发布器
func NewPublisher(conn *amqp.Connection) *Publisher {
	return &Publisher{conn: conn}
}

// Publish 发布一条事件。事件只做缓存失效之类的旁路工作，
// 调用方应把发布失败当作可忽略错误记日志，不回滚业务事务。
func (p *Publisher) Publish(ctx context.Context, ev *Event) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(eventQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		eventQueue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Consume 持续消费事件队列，handler 返回错误时 Nack 并重新入队
func Consume(conn *amqp.Connection, handler func(*Event) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(eventQueue, true, false, false, false, nil); err != nil {
		return err
	}

	msgs, err := ch.Consume(eventQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for d := range msgs {
		var ev Event
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			// 消息损坏，丢弃
			_ = d.Nack(false, false)
			continue
		}
		if err := handler(&ev); err != nil {
			_ = d.Nack(false, true)
			continue
		}
		_ = d.Ack(false)
	}
	return nil
}
