package mysql

import (
	"log"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/LeeDev428/rarevault-e-comm/internal/config"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/item"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/message"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/order"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/rating"
	"github.com/LeeDev428/rarevault-e-comm/internal/datamodels/user"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Init 初始化全局 GORM 实例并自动迁移表结构
func Init(cfg *config.MySQLConfig) *gorm.DB {
	once.Do(func() {
		var err error
		db, err = gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}

		if err = Migrate(db); err != nil {
			log.Fatalf("auto migrate failed: %v", err)
		}
	})
	return db
}

// Migrate 迁移全部业务表，测试里也会对 sqlite 实例调用
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&item.Item{},
		&item.Image{},
		&order.Order{},
		&rating.Rating{},
		&message.Message{},
	)
}

// DB 获取全局 DB
func DB() *gorm.DB {
	return db
}
