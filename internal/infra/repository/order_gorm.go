package repository

import (
	"context"
	"errors"

	"chefchain/internal/domain/model"
	repo "chefchain/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// 明細はid順、メニューも一緒に読む
func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id asc")
		}).
		Preload("Items.MenuItem")
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := withItems(r.db.WithContext(ctx)).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindPendingByCustomerID(ctx context.Context, customerID int64) (model.Order, error) {
	var o model.Order
	err := withItems(r.db.WithContext(ctx)).
		Where("customer_id = ? AND status = ?", customerID, model.OrderStatusPending).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// pendingを行ロックで探し、無ければ作る。
// 同時作成は部分ユニークインデックスで弾かれるので、SAVEPOINT内でinsertして失敗したら読み直す
func (r *OrderGormRepository) GetOrCreatePending(ctx context.Context, customerID int64) (model.Order, error) {
	var orderID int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found model.Order
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("customer_id = ? AND status = ?", customerID, model.OrderStatusPending).
			First(&found).Error

		if findErr == nil {
			orderID = found.ID
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る
		newOrder := model.Order{
			CustomerID: customerID,
			OrderType:  model.OrderTypeDineIn,
			Status:     model.OrderStatusPending,
		}
		createErr := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Omit(clause.Associations).Create(&newOrder).Error
		})
		if createErr == nil {
			orderID = newOrder.ID
			return nil
		}
		if !isUniqueViolation(createErr) {
			return createErr
		}

		// 先に作られていた
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("customer_id = ? AND status = ?", customerID, model.OrderStatusPending).
			First(&found).Error; err != nil {
			return err
		}
		orderID = found.ID
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	return r.FindByID(ctx, orderID)
}

// 明細も一緒に保存（メニュー側には書き込まない）
func (r *OrderGormRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return mapConstraintError(err, repo.ErrConflict)
		}
		if len(order.Items) == 0 {
			return nil
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
		if err := tx.Omit("MenuItem").Create(&order.Items).Error; err != nil {
			return mapConstraintError(err, repo.ErrConflict)
		}
		return nil
	})
}

func (r *OrderGormRepository) UpdateDetails(ctx context.Context, orderID int64, tableNumber *string, orderType model.OrderType) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"table_number": tableNumber,
			"order_type":   orderType,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 現在のstatusがfromのときだけ更新。0件なら他で変わっている
func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)

	if res.Error != nil {
		return mapConstraintError(res.Error, repo.ErrConflict)
	}
	if res.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	q := withItems(r.db.WithContext(ctx)).Model(&model.Order{})

	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	// 新しい順
	q = q.Order("created_at desc").Order("id desc")

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var orders []model.Order
	if err := q.Find(&orders).Error; err != nil {
		return []model.Order{}, err
	}
	return orders, nil
}
