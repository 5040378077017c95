package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"chefchain/internal/domain/model"
	"chefchain/internal/payment"
	repo "chefchain/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 決済代行の約束（payment.Clientが実装）
type PaymentGateway interface {
	InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference string, callbackURL string) payment.Result
	VerifyPayment(ctx context.Context, reference string) payment.Result
}

type PaymentUsecase struct {
	orders   repo.OrderRepository
	payments repo.PaymentRepository
	users    repo.UserRepository
	gateway  PaymentGateway
	logger   *zap.SugaredLogger
	newRef   func() string
}

func NewPaymentUsecase(
	orders repo.OrderRepository,
	payments repo.PaymentRepository,
	users repo.UserRepository,
	gateway PaymentGateway,
	logger *zap.SugaredLogger,
) *PaymentUsecase {
	return &PaymentUsecase{
		orders:   orders,
		payments: payments,
		users:    users,
		gateway:  gateway,
		logger:   logger,
		newRef:   uuid.NewString,
	}
}

type InitializePaymentInput struct {
	OrderID     int64
	CallbackURL string
}

// Status=falseのときhandlerは400で返す
type PaymentOutput struct {
	Status    bool            `json:"status"`
	Reference string          `json:"reference,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func toPaymentOutput(reference string, res payment.Result) PaymentOutput {
	out := PaymentOutput{Status: res.OK, Reference: reference}
	if res.OK {
		out.Data = res.Data
	} else {
		out.Message = res.Message
		if out.Message == "" {
			out.Message = "payment failed"
		}
	}
	return out
}

// 注文の合計で決済を開始し、記録を残す
func (u *PaymentUsecase) InitializeOrderPayment(ctx context.Context, actor Actor, in InitializePaymentInput) (PaymentOutput, error) {
	if actor.UserID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}

	o, err := u.orders.FindByID(ctx, in.OrderID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	// 他人の注文は存在を隠す
	if o.CustomerID != actor.UserID {
		return PaymentOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	switch o.Status {
	case model.OrderStatusPending:
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "order not submitted")
	case model.OrderStatusCancelled:
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "order cancelled")
	}

	amount := o.Total()
	if !amount.IsPositive() {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "order total must be positive")
	}

	user, err := u.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(user.Email) == "" {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "email required for payment")
	}

	reference := u.newRef()
	res := u.gateway.InitializePayment(ctx, user.Email, amount, reference, strings.TrimSpace(in.CallbackURL))

	status := model.PaymentStatusInitialized
	if !res.OK {
		status = model.PaymentStatusFailed
		u.logger.Warnw("payment initialize failed", "order_id", o.ID, "reference", reference, "message", res.Message)
	}

	if err := u.payments.Create(ctx, &model.Payment{
		Reference:   reference,
		OrderID:     o.ID,
		UserID:      actor.UserID,
		Amount:      amount,
		AmountMinor: payment.ToMinorUnits(amount),
		Status:      status,
		Message:     res.Message,
	}); err != nil {
		return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toPaymentOutput(reference, res), nil
}

// 決済結果を問い合わせる。記録があれば本人のものだけ、結果を反映する
func (u *PaymentUsecase) VerifyPayment(ctx context.Context, actor Actor, reference string) (PaymentOutput, error) {
	if actor.UserID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "reference required")
	}

	known := true
	p, err := u.payments.FindByReference(ctx, reference)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		// ここで作られていない参照は代行側にそのまま問い合わせる
		known = false
	case err != nil:
		return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	case p.UserID != actor.UserID:
		return PaymentOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	res := u.gateway.VerifyPayment(ctx, reference)

	if known {
		status := verifiedPaymentStatus(res)
		if err := u.payments.UpdateStatus(ctx, reference, status, res.Message); err != nil {
			return PaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return toPaymentOutput(reference, res), nil
}

// status:trueは問い合わせの成功でしかない。取引の結果はdata.statusを見る
func verifiedPaymentStatus(res payment.Result) model.PaymentStatus {
	if !res.OK {
		return model.PaymentStatusFailed
	}
	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return model.PaymentStatusInitialized
	}
	switch data.Status {
	case "success":
		return model.PaymentStatusSuccess
	case "abandoned":
		return model.PaymentStatusAbandoned
	case "failed", "reversed":
		return model.PaymentStatusFailed
	default:
		// ongoing, pendingなどはまだ結果が出ていない
		return model.PaymentStatusInitialized
	}
}
