package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chefchain/internal/domain/model"
	repo "chefchain/internal/repository"
)

// 監査ログのbefore/after用。{"key": value} のJSON
func auditJSON(key string, value any) string {
	b, err := json.Marshal(map[string]any{key: value})
	if err != nil {
		return "{}"
	}
	return string(b)
}

type AuditLogUsecase struct {
	auditRepo repo.AuditLogRepository
}

func NewAuditLogUsecase(auditRepo repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{auditRepo: auditRepo}
}

type ListAuditLogsInput struct {
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         string // RFC3339
	To           string // RFC3339
	Limit        int
	Offset       int
}

// 監査ログ一覧（管理者）。新しい順
func (u *AuditLogUsecase) List(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit < 0 || in.Limit > 200 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Offset < 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	f := repo.AuditLogFilter{
		ActorUserID: in.ActorUserID,
		ResourceID:  in.ResourceID,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Action != "" {
		a := model.AuditAction(in.Action)
		f.Action = &a
	}
	if in.ResourceType != "" {
		rt := model.AuditResourceType(in.ResourceType)
		f.ResourceType = &rt
	}

	var ok bool
	if in.From != "" {
		if f.CreatedFrom, ok = parseDateTimeRFC3339(in.From); !ok {
			return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid from")
		}
	}
	if in.To != "" {
		if f.CreatedTo, ok = parseDateTimeRFC3339(in.To); !ok {
			return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid to")
		}
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

// 注文のステータス変更履歴（管理者）
func (u *AuditLogUsecase) OrderTrail(ctx context.Context, orderID int64) ([]model.AuditLog, error) {
	if orderID <= 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	logs, err := u.auditRepo.List(ctx, repo.OrderStatusTrail(orderID, 200))
	if err != nil {
		return []model.AuditLog{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

func parseDateTimeRFC3339(s string) (*time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
