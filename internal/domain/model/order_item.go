package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文の明細。
// UnitPrice/ItemNameは注文確定時のスナップショット。カートの間は空でメニューの現在値を使う。
// メニューが消えるとMenuItemIDはNULLになり、スナップショットだけが残る
type OrderItem struct {
	ID         int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64            `gorm:"not null;uniqueIndex:ux_order_items_order_menu" json:"order_id"`
	MenuItemID *int64           `gorm:"uniqueIndex:ux_order_items_order_menu;index" json:"menu_item_id"`
	MenuItem   MenuItem         `gorm:"foreignKey:MenuItemID;constraint:OnDelete:SET NULL" json:"-"`
	ItemName   string           `gorm:"type:varchar(150);not null;default:''" json:"item_name"`
	Quantity   int64            `gorm:"not null;default:1" json:"quantity"`
	UnitPrice  *decimal.Decimal `gorm:"type:numeric(8,2)" json:"unit_price"`
	CreatedAt  time.Time        `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt  time.Time        `gorm:"not null;autoUpdateTime" json:"-"`
}

func (it OrderItem) DisplayName() string {
	if it.ItemName != "" {
		return it.ItemName
	}
	return it.MenuItem.Name
}

func (it OrderItem) EffectiveUnitPrice() decimal.Decimal {
	if it.UnitPrice != nil {
		return *it.UnitPrice
	}
	return it.MenuItem.Price
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.EffectiveUnitPrice().Mul(decimal.NewFromInt(it.Quantity))
}
