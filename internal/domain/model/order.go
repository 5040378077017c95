package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

type OrderStatus string

const (
	// pendingはカート（未送信）
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// 厨房・配達の順番
var nextOrderStatus = map[OrderStatus]OrderStatus{
	OrderStatusConfirmed: OrderStatusPreparing,
	OrderStatusPreparing: OrderStatusReady,
	OrderStatusReady:     OrderStatusDelivered,
}

// 履歴に出すステータス
var HistoryOrderStatuses = []OrderStatus{
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// スタッフ操作で遷移できるか。
// pending→confirmedは注文送信でしか起きないのでここでは不可
func (s OrderStatus) CanAdvanceTo(to OrderStatus) bool {
	if to == OrderStatusCancelled {
		return !s.IsTerminal()
	}
	next, ok := nextOrderStatus[s]
	return ok && next == to
}

type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID  int64       `gorm:"not null;index" json:"customer_id"`
	Customer    *User       `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
	TableNumber *string     `gorm:"type:varchar(10)" json:"table_number"`
	OrderType   OrderType   `gorm:"type:varchar(20);not null;default:'dine_in'" json:"order_type"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt   time.Time   `gorm:"not null;autoCreateTime;<-:create" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 明細の合計
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}
