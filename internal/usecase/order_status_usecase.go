package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"chefchain/internal/domain/model"
	"chefchain/internal/event"
	repo "chefchain/internal/repository"
)

// ステータスを進める（スタッフのみ）。cancelledは管理者のみ
func (u *OrderUsecase) AdvanceStatus(ctx context.Context, actor Actor, orderID int64, status string) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.Role.CanAdvanceOrders() {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := model.OrderStatus(strings.TrimSpace(status))
	if !newStatus.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if newStatus == model.OrderStatusCancelled && !actor.Role.CanCancelOrders() {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	var before model.OrderStatus

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if !o.Status.CanAdvanceTo(newStatus) {
			return NewHTTPError(http.StatusConflict, "invalid status transition")
		}
		before = o.Status

		// 読んだ時点のstatusのままなら更新（同時更新は片方だけ通る）
		if err := r.Orders().UpdateStatus(ctx, orderID, o.Status, newStatus); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "order status changed concurrently")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   auditJSON("status", before),
			AfterJSON:    auditJSON("status", newStatus),
			CreatedAt:    u.now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.publishStatusChanged(ctx, o, before, actor.UserID)
	return toOrderOutput(o), nil
}

// 注文キャンセル（管理者）
func (u *OrderUsecase) CancelOrder(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	return u.AdvanceStatus(ctx, actor, orderID, string(model.OrderStatusCancelled))
}

// コミット後に送る。失敗してもリクエストは成功扱い
func (u *OrderUsecase) publishStatusChanged(ctx context.Context, o model.Order, before model.OrderStatus, changedBy int64) {
	ev := event.OrderStatusChanged{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		OldStatus:  before,
		NewStatus:  o.Status,
		ChangedBy:  changedBy,
		ChangedAt:  u.now(),
	}
	if err := u.publisher.PublishOrderStatusChanged(ctx, ev); err != nil {
		u.logger.Warnw("failed to publish order event",
			"order_id", o.ID,
			"new_status", o.Status,
			"error", err,
		)
	}
}
