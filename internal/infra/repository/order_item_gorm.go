package repository

import (
	"context"
	"errors"

	"chefchain/internal/domain/model"
	repo "chefchain/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

// 同一メニューは数量加算。無ければ明細を作る
func (r *OrderItemGormRepository) AddQuantity(ctx context.Context, orderID int64, menuItemID int64, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.OrderItem

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND menu_item_id = ?", orderID, menuItemID).
			First(&item).Error

		if err == nil {
			return incrementQuantity(tx, item.ID, addQty)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		newItem := model.OrderItem{
			OrderID:    orderID,
			MenuItemID: &menuItemID,
			Quantity:   addQty,
		}
		createErr := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Omit("MenuItem").Create(&newItem).Error
		})
		if createErr == nil {
			return nil
		}
		if !isUniqueViolation(createErr) {
			return mapConstraintError(createErr, repo.ErrNotFound)
		}

		// 同時に作られた明細に加算
		if err := tx.
			Where("order_id = ? AND menu_item_id = ?", orderID, menuItemID).
			First(&item).Error; err != nil {
			return err
		}
		return incrementQuantity(tx, item.ID, addQty)
	})
}

func incrementQuantity(tx *gorm.DB, itemID int64, addQty int64) error {
	res := tx.Model(&model.OrderItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", addQty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderItemGormRepository) UpdateQuantity(ctx context.Context, itemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Where("id = ?", itemID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 注文確定時の価格・名前スナップショット
func (r *OrderItemGormRepository) SnapshotLine(ctx context.Context, itemID int64, price decimal.Decimal, name string) error {
	res := r.db.WithContext(ctx).
		Model(&model.OrderItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"unit_price": price,
			"item_name":  name,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderItemGormRepository) DeleteByID(ctx context.Context, itemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.OrderItem{}, itemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細が、そのユーザーのpendingカートに属しているかを判定
func (r *OrderItemGormRepository) IsInPendingCartOf(ctx context.Context, itemID int64, customerID int64) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Table("order_items").
		Joins("join orders on orders.id = order_items.order_id").
		Where("order_items.id = ? AND orders.customer_id = ? AND orders.status = ?",
			itemID, customerID, model.OrderStatusPending).
		Count(&count).Error

	if err != nil {
		return false, err
	}
	return count > 0, nil
}
