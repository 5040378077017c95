package repository

import (
	"chefchain/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 一意制約・外部キー制約・CASでの競合
var ErrConflict = errors.New("conflict")

// メニュー一覧の絞り込み
type MenuItemFilter struct {
	CategoryID    *int64
	Search        string
	AvailableOnly bool
}

// メニューの永続化（保存・取得）だけを約束。
type MenuItemRepository interface {
	List(ctx context.Context, f MenuItemFilter) ([]model.MenuItem, error)
	FindByID(ctx context.Context, id int64) (model.MenuItem, error)

	Create(ctx context.Context, item model.MenuItem) (model.MenuItem, error)
	Update(ctx context.Context, item model.MenuItem) error
	Delete(ctx context.Context, id int64) error
}
