package repository

import (
	"context"
	"errors"

	"chefchain/internal/domain/model"
	repo "chefchain/internal/repository"

	"gorm.io/gorm"
)

type CategoryGormRepository struct {
	db *gorm.DB
}

func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

func (r *CategoryGormRepository) ListWithAvailableItems(ctx context.Context) ([]model.Category, error) {
	var cs []model.Category
	err := r.db.WithContext(ctx).
		Preload("MenuItems", func(db *gorm.DB) *gorm.DB {
			return db.Where("available = ?", true).Order("id asc")
		}).
		Order("id asc").
		Find(&cs).Error
	if err != nil {
		return []model.Category{}, err
	}
	return cs, nil
}

func (r *CategoryGormRepository) FindByID(ctx context.Context, id int64) (model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Category{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (r *CategoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Omit("MenuItems").Create(&c).Error; err != nil {
		return model.Category{}, err
	}
	return c, nil
}

func (r *CategoryGormRepository) Update(ctx context.Context, c model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// メニューはCASCADEで消える。確定済みの明細はSET NULLでスナップショットが残り、
// カート（pending）の明細は先に外す
func (r *CategoryGormRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM order_items
			WHERE menu_item_id IN (SELECT id FROM menu_items WHERE category_id = ?)
			AND order_id IN (SELECT id FROM orders WHERE status = ?)`,
			id, model.OrderStatusPending).Error; err != nil {
			return err
		}

		res := tx.Delete(&model.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}
