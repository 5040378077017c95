package repository

import (
	"context"

	"chefchain/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	FindByReference(ctx context.Context, reference string) (model.Payment, error)
	UpdateStatus(ctx context.Context, reference string, status model.PaymentStatus, message string) error
}
