package repository

import (
	"context"
	"time"

	"chefchain/internal/domain/model"
)

// nilの項目は条件にしない
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// 注文1件のステータス変更履歴
func OrderStatusTrail(orderID int64, limit int) AuditLogFilter {
	action := model.AuditActionUpdateOrderStatus
	resource := model.AuditResourceOrder
	return AuditLogFilter{
		Action:       &action,
		ResourceType: &resource,
		ResourceID:   &orderID,
		Limit:        limit,
	}
}

type AuditLogRepository interface {
	// 状態変更と同じトランザクションで書く
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
