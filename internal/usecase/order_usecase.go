package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"chefchain/internal/domain/model"
	"chefchain/internal/event"
	repo "chefchain/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxTableNumberLen = 10

// 認証済みの呼び出し元
type Actor struct {
	UserID int64
	Role   model.Role
}

// OrderUsecase はカート（pendingの注文）と注文の業務ロジック。
// カート操作は cart_usecase.go、スタッフのステータス操作は order_status_usecase.go
type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	publisher event.Publisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	publisher event.Publisher,
	logger *zap.SugaredLogger,
) *OrderUsecase {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

type OrderItemOutput struct {
	ID         int64  `json:"id"`
	Item       *int64 `json:"item"` // メニュー削除後はnull
	ItemName   string `json:"item_name"`
	Price      string `json:"price"`
	Quantity   int64  `json:"quantity"`
	TotalPrice string `json:"total_price"`
}

type OrderOutput struct {
	ID          int64             `json:"id"`
	Customer    int64             `json:"customer"`
	TableNumber *string           `json:"table_number"`
	OrderType   model.OrderType   `json:"order_type"`
	Status      model.OrderStatus `json:"status"`
	OrderItems  []OrderItemOutput `json:"order_items"`
	Total       string            `json:"total"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type SubmitOrderItem struct {
	MenuItemID int64
	Quantity   int64
}

type SubmitOrderInput struct {
	TableNumber *string
	OrderType   string
	Items       []SubmitOrderItem
}

// 金額は小数2桁の文字列で返す
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemOutput{
			ID:         it.ID,
			Item:       it.MenuItemID,
			ItemName:   it.DisplayName(),
			Price:      money(it.EffectiveUnitPrice()),
			Quantity:   it.Quantity,
			TotalPrice: money(it.LineTotal()),
		})
	}
	return OrderOutput{
		ID:          o.ID,
		Customer:    o.CustomerID,
		TableNumber: o.TableNumber,
		OrderType:   o.OrderType,
		Status:      o.Status,
		OrderItems:  items,
		Total:       money(o.Total()),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toOrderOutputs(orders []model.Order) []OrderOutput {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o))
	}
	return outs
}

func normalizeOrderType(s string) (model.OrderType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.OrderTypeDineIn, nil
	}
	t := model.OrderType(s)
	if !t.Valid() {
		return "", NewHTTPError(http.StatusBadRequest, "invalid order_type")
	}
	return t, nil
}

// 注文確定。pendingのカートがあれば指定明細を足して確定、無ければ新しい注文を直接confirmedで作る
func (u *OrderUsecase) SubmitOrder(ctx context.Context, customerID int64, in SubmitOrderInput) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderType, err := normalizeOrderType(in.OrderType)
	if err != nil {
		return OrderOutput{}, err
	}
	if in.TableNumber != nil {
		tn := strings.TrimSpace(*in.TableNumber)
		if len(tn) > maxTableNumberLen {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "table_number too long")
		}
		in.TableNumber = &tn
		if tn == "" {
			in.TableNumber = nil
		}
	}
	for _, it := range in.Items {
		if it.MenuItemID <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid item_id")
		}
		if it.Quantity < 1 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be at least 1")
		}
	}

	var (
		orderID   int64
		oldStatus model.OrderStatus
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		_, findErr := r.Orders().FindPendingByCustomerID(ctx, customerID)
		switch {
		case findErr == nil:
			id, err := u.submitPendingCart(ctx, r, customerID, in, orderType)
			orderID = id
			oldStatus = model.OrderStatusPending
			return err
		case errors.Is(findErr, repo.ErrNotFound):
			// 新規作成なので前のステータスは無い
			id, err := u.createConfirmedOrder(ctx, r, customerID, in, orderType)
			orderID = id
			oldStatus = ""
			return err
		default:
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	})
	if err != nil {
		return OrderOutput{}, err
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.publishStatusChanged(ctx, o, oldStatus, customerID)
	return toOrderOutput(o), nil
}

func (u *OrderUsecase) submitPendingCart(ctx context.Context, r repo.TxRepos, customerID int64, in SubmitOrderInput, orderType model.OrderType) (int64, error) {
	// 行ロックを取り直す
	cart, err := r.Orders().GetOrCreatePending(ctx, customerID)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	for _, it := range in.Items {
		if _, err := findOrderableMenuItem(ctx, r, it.MenuItemID); err != nil {
			return 0, err
		}
		if err := r.OrderItems().AddQuantity(ctx, cart.ID, it.MenuItemID, it.Quantity); err != nil {
			return 0, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	cart, err = r.Orders().FindByID(ctx, cart.ID)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(cart.Items) == 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "order has no items")
	}

	if err := r.Orders().UpdateDetails(ctx, cart.ID, in.TableNumber, orderType); err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 確定時点の価格を固定
	for _, it := range cart.Items {
		if err := r.OrderItems().SnapshotLine(ctx, it.ID, it.MenuItem.Price, it.MenuItem.Name); err != nil {
			return 0, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	if err := r.Orders().UpdateStatus(ctx, cart.ID, model.OrderStatusPending, model.OrderStatusConfirmed); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return 0, NewHTTPError(http.StatusConflict, "order already submitted")
		}
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return cart.ID, nil
}

func (u *OrderUsecase) createConfirmedOrder(ctx context.Context, r repo.TxRepos, customerID int64, in SubmitOrderInput, orderType model.OrderType) (int64, error) {
	if len(in.Items) == 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "order has no items")
	}

	// 同じメニューは1明細にまとめる
	lines := make([]model.OrderItem, 0, len(in.Items))
	index := make(map[int64]int, len(in.Items))
	for _, it := range in.Items {
		if i, ok := index[it.MenuItemID]; ok {
			lines[i].Quantity += it.Quantity
			continue
		}
		m, err := findOrderableMenuItem(ctx, r, it.MenuItemID)
		if err != nil {
			return 0, err
		}
		price := m.Price
		menuItemID := it.MenuItemID
		index[it.MenuItemID] = len(lines)
		lines = append(lines, model.OrderItem{
			MenuItemID: &menuItemID,
			ItemName:   m.Name,
			Quantity:   it.Quantity,
			UnitPrice:  &price,
		})
	}

	o := &model.Order{
		CustomerID:  customerID,
		TableNumber: in.TableNumber,
		OrderType:   orderType,
		Status:      model.OrderStatusConfirmed,
		Items:       lines,
	}
	if err := r.Orders().Create(ctx, o); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return 0, NewHTTPError(http.StatusConflict, "conflict")
		}
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return o.ID, nil
}

// 存在して提供中のメニューだけ注文できる
func findOrderableMenuItem(ctx context.Context, r repo.TxRepos, menuItemID int64) (model.MenuItem, error) {
	m, err := r.MenuItems().FindByID(ctx, menuItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.MenuItem{}, NewHTTPError(http.StatusNotFound, "menu item not found")
	}
	if err != nil {
		return model.MenuItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !m.Available {
		return model.MenuItem{}, NewHTTPError(http.StatusBadRequest, "menu item unavailable")
	}
	return m, nil
}

// スタッフは全件、顧客は自分の注文（カート含む）
func (u *OrderUsecase) ListOrders(ctx context.Context, actor Actor) ([]OrderOutput, error) {
	if actor.UserID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	f := repo.OrderListFilter{}
	if !actor.Role.CanViewAllOrders() {
		f.CustomerID = &actor.UserID
	}

	orders, err := u.orders.List(ctx, f)
	if err != nil {
		return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutputs(orders), nil
}

// 確定済み〜配達済みの自分の注文
func (u *OrderUsecase) ListOrderHistory(ctx context.Context, customerID int64) ([]OrderOutput, error) {
	if customerID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := u.orders.List(ctx, repo.OrderListFilter{
		CustomerID: &customerID,
		Statuses:   model.HistoryOrderStatuses,
	})
	if err != nil {
		return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutputs(orders), nil
}

// 他人の注文・自分のカートは404
func (u *OrderUsecase) GetOrderDetail(ctx context.Context, actor Actor, orderID int64) (OrderOutput, error) {
	if actor.UserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !actor.Role.CanViewAllOrders() {
		if o.CustomerID != actor.UserID || o.Status == model.OrderStatusPending {
			return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
		}
	}
	return toOrderOutput(o), nil
}
