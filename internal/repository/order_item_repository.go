package repository

import (
	"context"

	"github.com/shopspring/decimal"
)

type OrderItemRepository interface {
	// 同一メニューは数量加算
	AddQuantity(ctx context.Context, orderID int64, menuItemID int64, addQty int64) error
	UpdateQuantity(ctx context.Context, itemID int64, qty int64) error
	// 確定時の価格と名前を明細に残す
	SnapshotLine(ctx context.Context, itemID int64, price decimal.Decimal, name string) error
	DeleteByID(ctx context.Context, itemID int64) error

	// 明細がそのユーザーのpendingカートに属しているか
	IsInPendingCartOf(ctx context.Context, itemID int64, customerID int64) (bool, error)
}
