// Package event は注文ステータス変更をメッセージブローカーに流す。
package event

import (
	"context"
	"time"

	"chefchain/internal/domain/model"
)

const (
	ExchangeOrderEvents      = "order_events"
	RoutingOrderStatusChange = "order.status_changed"
)

type OrderStatusChanged struct {
	OrderID    int64             `json:"order_id"`
	CustomerID int64             `json:"customer_id"`
	OldStatus  model.OrderStatus `json:"old_status,omitempty"` // 直接confirmedで作った注文は空
	NewStatus  model.OrderStatus `json:"new_status"`
	ChangedBy  int64             `json:"changed_by"`
	ChangedAt  time.Time         `json:"changed_at"`
}

type Publisher interface {
	PublishOrderStatusChanged(ctx context.Context, ev OrderStatusChanged) error
	Close() error
}

// ブローカー未設定のとき
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderStatusChanged(context.Context, OrderStatusChanged) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
