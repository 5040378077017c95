package repository

import (
	"context"
	"errors"

	"chefchain/internal/domain/model"
	repo "chefchain/internal/repository"

	"gorm.io/gorm"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

// referenceが重複したらErrConflict
func (r *PaymentGormRepository) Create(ctx context.Context, p *model.Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return mapConstraintError(err, repo.ErrConflict)
	}
	return nil
}

func (r *PaymentGormRepository) FindByReference(ctx context.Context, reference string) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) UpdateStatus(ctx context.Context, reference string, status model.PaymentStatus, message string) error {
	res := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("reference = ?", reference).
		Updates(map[string]interface{}{
			"status":  status,
			"message": message,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
