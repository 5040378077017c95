package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  *int64          `gorm:"index" json:"category_id"`
	Name        string          `gorm:"type:varchar(150);not null" json:"name"`
	Description *string         `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"price"`
	Image       *string         `gorm:"type:varchar(255)" json:"image"`
	Available   bool            `gorm:"not null" json:"available"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"-"`
}
