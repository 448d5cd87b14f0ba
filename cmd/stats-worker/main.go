package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/LeeDev428/rarevault-e-comm/internal/config"
	"github.com/LeeDev428/rarevault-e-comm/internal/infra/mq"
	"github.com/LeeDev428/rarevault-e-comm/internal/infra/redis"
	"github.com/LeeDev428/rarevault-e-comm/internal/logger"
	"github.com/LeeDev428/rarevault-e-comm/internal/repository/mysql"
	"github.com/LeeDev428/rarevault-e-comm/internal/service"
)

// stats-worker 消费订单/评分事件，把受影响商品的聚合统计缓存打掉，
// 下一次读取会从数据库重算并回填。
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(false)

	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	itemRepo := mysql.NewItemRepository(db)
	userRepo := mysql.NewUserRepository(db)
	ratingRepo := mysql.NewRatingRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	itemSvc := service.NewItemService(itemRepo, userRepo, ratingRepo, orderRepo, redisClient)

	zap.L().Info("stats worker started, waiting for events")

	err = mq.Consume(mqConn, func(ev *mq.Event) error {
		if ev.ItemID == 0 {
			zap.L().Warn("event without item id, dropping", zap.String("type", ev.Type))
			return nil
		}
		itemSvc.InvalidateStats(ev.ItemID)
		zap.L().Info("invalidated item stats",
			zap.String("type", ev.Type),
			zap.Int64("item_id", ev.ItemID),
			zap.Int64("order_id", ev.OrderID))
		return nil
	})
	if err != nil {
		log.Fatalf("consumer stopped: %v", err)
	}
}
