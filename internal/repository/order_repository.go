package repository

import (
	"context"

	"chefchain/internal/domain/model"
)

type OrderListFilter struct {
	CustomerID *int64
	Statuses   []model.OrderStatus
	Limit      int
	Offset     int
}

type OrderRepository interface {
	// 明細とメニューをpreloadして返す
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindPendingByCustomerID(ctx context.Context, customerID int64) (model.Order, error)

	// pendingは1ユーザー1件（無ければ作る）
	GetOrCreatePending(ctx context.Context, customerID int64) (model.Order, error)

	Create(ctx context.Context, order *model.Order) error

	// テーブル番号・注文種別を更新
	UpdateDetails(ctx context.Context, orderID int64, tableNumber *string, orderType model.OrderType) error

	// fromのときだけtoに変える（違えばErrConflict）
	UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) error

	// 新しい順
	List(ctx context.Context, f OrderListFilter) ([]model.Order, error)
}
