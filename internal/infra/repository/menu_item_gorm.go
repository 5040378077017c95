package repository

import (
	"context"
	"errors"
	"strings"

	"chefchain/internal/domain/model"
	repo "chefchain/internal/repository"

	"gorm.io/gorm"
)

type MenuItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewMenuItemGormRepository(db *gorm.DB) *MenuItemGormRepository {
	return &MenuItemGormRepository{db: db}
}

// カテゴリ・名前検索・提供中で絞り込んで返す
func (r *MenuItemGormRepository) List(ctx context.Context, f repo.MenuItemFilter) ([]model.MenuItem, error) {
	var items []model.MenuItem

	tx := r.db.WithContext(ctx).Model(&model.MenuItem{})

	if f.CategoryID != nil {
		tx = tx.Where("category_id = ?", *f.CategoryID)
	}

	// nameの部分一致（大文字小文字を区別しない）
	if s := strings.TrimSpace(f.Search); s != "" {
		tx = tx.Where("name ILIKE ?", "%"+s+"%")
	}

	if f.AvailableOnly {
		tx = tx.Where("available = ?", true)
	}

	if err := tx.Order("id asc").Find(&items).Error; err != nil {
		return []model.MenuItem{}, err
	}
	return items, nil
}

func (r *MenuItemGormRepository) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	var m model.MenuItem
	err := r.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.MenuItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.MenuItem{}, err
	}
	return m, nil
}

func (r *MenuItemGormRepository) Create(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		// 存在しないcategory_id
		if isForeignKeyViolation(err) {
			return model.MenuItem{}, repo.ErrNotFound
		}
		return model.MenuItem{}, err
	}
	return item, nil
}

// 全項目を上書き（falseやnilもそのまま書く）
func (r *MenuItemGormRepository) Update(ctx context.Context, item model.MenuItem) error {
	res := r.db.WithContext(ctx).Model(&model.MenuItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"category_id": item.CategoryID,
		"name":        item.Name,
		"description": item.Description,
		"price":       item.Price,
		"image":       item.Image,
		"available":   item.Available,
	})
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return repo.ErrNotFound
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// カートの明細からは外す。確定済みの明細はmenu_item_idがNULLになる
func (r *MenuItemGormRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM order_items
			WHERE menu_item_id = ?
			AND order_id IN (SELECT id FROM orders WHERE status = ?)`,
			id, model.OrderStatusPending).Error; err != nil {
			return err
		}

		res := tx.Delete(&model.MenuItem{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
}
