package repository

import (
	"chefchain/internal/domain/model"
	"context"
)

type CategoryRepository interface {
	// 提供中のメニューを入れた状態で返す
	ListWithAvailableItems(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	Delete(ctx context.Context, id int64) error
}
