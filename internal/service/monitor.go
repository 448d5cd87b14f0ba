package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，统计错误与下单指标
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	RedisErrors int64
	MQErrors    int64
	DBErrors    int64

	// 下单统计
	OrderRequests      int64
	OrderPlaced        int64
	OrderStockMisses   int64 // 因库存不足被拒绝的下单
	OrderTransitions   int64
	InvalidTransitions int64

	// 时间统计
	LastRedisError time.Time
	LastMQError    time.Time
	LastDBError    time.Time
	LastOrderTime  time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordRedisError 记录 Redis 错误
func (m *Monitor) RecordRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors++
	m.LastRedisError = time.Now()
}

// RecordMQError 记录 MQ 错误
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordOrderRequest 记录下单请求
func (m *Monitor) RecordOrderRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderRequests++
	m.LastOrderTime = time.Now()
}

// RecordOrderPlaced 记录下单成功
func (m *Monitor) RecordOrderPlaced() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderPlaced++
}

// RecordStockMiss 记录库存不足
func (m *Monitor) RecordStockMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderStockMisses++
}

// RecordTransition 记录状态迁移
func (m *Monitor) RecordTransition() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderTransitions++
}

// RecordInvalidTransition 记录非法迁移
func (m *Monitor) RecordInvalidTransition() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvalidTransitions++
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	placeRate := float64(0)
	if m.OrderRequests > 0 {
		placeRate = float64(m.OrderPlaced) / float64(m.OrderRequests) * 100
	}

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"redis": m.RedisErrors,
			"mq":    m.MQErrors,
			"db":    m.DBErrors,
		},
		"orders": map[string]interface{}{
			"requests":            m.OrderRequests,
			"placed":              m.OrderPlaced,
			"place_rate":          placeRate,
			"stock_misses":        m.OrderStockMisses,
			"transitions":         m.OrderTransitions,
			"invalid_transitions": m.InvalidTransitions,
		},
		"last_events": map[string]interface{}{
			"redis_error": m.LastRedisError,
			"mq_error":    m.LastMQError,
			"db_error":    m.LastDBError,
			"last_order":  m.LastOrderTime,
		},
	}
}

// Reset 重置统计（用于测试或定期清理）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors = 0
	m.MQErrors = 0
	m.DBErrors = 0
	m.OrderRequests = 0
	m.OrderPlaced = 0
	m.OrderStockMisses = 0
	m.OrderTransitions = 0
	m.InvalidTransitions = 0
}
