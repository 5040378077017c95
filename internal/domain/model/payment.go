package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusInitialized PaymentStatus = "initialized"
	PaymentStatusFailed      PaymentStatus = "failed"
	PaymentStatusSuccess     PaymentStatus = "success"
	PaymentStatusAbandoned   PaymentStatus = "abandoned"
)

// 決済の記録。Referenceで決済代行側の取引と紐付ける
type Payment struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference   string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"reference"`
	OrderID     int64           `gorm:"not null;index" json:"order_id"`
	UserID      int64           `gorm:"not null;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	AmountMinor int64           `gorm:"not null" json:"amount_minor"`
	Status      PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Message     string          `gorm:"type:text" json:"message"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
