package db

import (
	"fmt"

	"chefchain/internal/config"
	"chefchain/internal/domain/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config, log *zap.SugaredLogger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.IsProduction() {
		level = gormlogger.Error
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: newGormLogger(log, level),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return gdb, nil
}

// pendingの注文（カート）は1ユーザー1件
const pendingOrderIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_customer_pending
	ON orders (customer_id) WHERE status = 'pending'`

// Migrate はテーブルと部分インデックスを作る
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Category{},
		&model.MenuItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := gdb.Exec(pendingOrderIndex).Error; err != nil {
		return fmt.Errorf("create pending order index: %w", err)
	}
	return nil
}
