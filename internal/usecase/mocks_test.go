package usecase_test

import (
	"context"
	"testing"
	"time"

	"chefchain/internal/domain/model"
	"chefchain/internal/event"
	"chefchain/internal/payment"
	repo "chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos
// =====================

// WithinTxの中で渡すreposを固定してunitテストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	menuItems  repo.MenuItemRepository
	auditLogs  repo.AuditLogRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) MenuItems() repo.MenuItemRepository   { return r.menuItems }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindPendingByCustomerID(ctx context.Context, customerID int64) (model.Order, error) {
	args := m.Called(ctx, customerID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) GetOrCreatePending(ctx context.Context, customerID int64) (model.Order, error) {
	args := m.Called(ctx, customerID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateDetails(ctx context.Context, orderID int64, tableNumber *string, orderType model.OrderType) error {
	args := m.Called(ctx, orderID, tableNumber, orderType)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) error {
	args := m.Called(ctx, orderID, from, to)
	return args.Error(0)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) AddQuantity(ctx context.Context, orderID int64, menuItemID int64, addQty int64) error {
	return m.Called(ctx, orderID, menuItemID, addQty).Error(0)
}

func (m *OrderItemRepoMock) UpdateQuantity(ctx context.Context, itemID int64, qty int64) error {
	return m.Called(ctx, itemID, qty).Error(0)
}

func (m *OrderItemRepoMock) SnapshotLine(ctx context.Context, itemID int64, price decimal.Decimal, name string) error {
	return m.Called(ctx, itemID, price.StringFixed(2), name).Error(0)
}

func (m *OrderItemRepoMock) DeleteByID(ctx context.Context, itemID int64) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *OrderItemRepoMock) IsInPendingCartOf(ctx context.Context, itemID int64, customerID int64) (bool, error) {
	args := m.Called(ctx, itemID, customerID)
	return args.Bool(0), args.Error(1)
}

type MenuItemRepoMock struct{ mock.Mock }

func (m *MenuItemRepoMock) List(ctx context.Context, f repo.MenuItemFilter) ([]model.MenuItem, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]model.MenuItem)
	return items, args.Error(1)
}

func (m *MenuItemRepoMock) FindByID(ctx context.Context, id int64) (model.MenuItem, error) {
	args := m.Called(ctx, id)
	it, _ := args.Get(0).(model.MenuItem)
	return it, args.Error(1)
}

func (m *MenuItemRepoMock) Create(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	args := m.Called(ctx, item)
	it, _ := args.Get(0).(model.MenuItem)
	return it, args.Error(1)
}

func (m *MenuItemRepoMock) Update(ctx context.Context, item model.MenuItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MenuItemRepoMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type CategoryRepoMock struct{ mock.Mock }

func (m *CategoryRepoMock) ListWithAvailableItems(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]model.Category)
	return cs, args.Error(1)
}

func (m *CategoryRepoMock) FindByID(ctx context.Context, id int64) (model.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Category)
	return c, args.Error(1)
}

func (m *CategoryRepoMock) Create(ctx context.Context, c model.Category) (model.Category, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(model.Category)
	return out, args.Error(1)
}

func (m *CategoryRepoMock) Update(ctx context.Context, c model.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *CategoryRepoMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) Create(ctx context.Context, p *model.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PaymentRepoMock) FindByReference(ctx context.Context, reference string) (model.Payment, error) {
	args := m.Called(ctx, reference)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) UpdateStatus(ctx context.Context, reference string, status model.PaymentStatus, message string) error {
	return m.Called(ctx, reference, status, message).Error(0)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepoMock) UpdateRole(ctx context.Context, userID int64, role model.Role) error {
	return m.Called(ctx, userID, role).Error(0)
}

type RefreshTokenRepoMock struct{ mock.Mock }

func (m *RefreshTokenRepoMock) Create(ctx context.Context, token *model.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *RefreshTokenRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	t, _ := args.Get(0).(*model.RefreshToken)
	return t, args.Error(1)
}

func (m *RefreshTokenRepoMock) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	return m.Called(ctx, tokenID, usedAt).Error(0)
}

func (m *RefreshTokenRepoMock) RevokeAllByUserID(ctx context.Context, userID int64, revokedAt time.Time) error {
	return m.Called(ctx, userID, revokedAt).Error(0)
}

// =====================
// Side channels
// =====================

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) PublishOrderStatusChanged(ctx context.Context, ev event.OrderStatusChanged) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *PublisherMock) Close() error { return nil }

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) InitializePayment(ctx context.Context, email string, amount decimal.Decimal, reference string, callbackURL string) payment.Result {
	args := m.Called(ctx, email, amount.StringFixed(2), reference, callbackURL)
	return args.Get(0).(payment.Result)
}

func (m *GatewayMock) VerifyPayment(ctx context.Context, reference string) payment.Result {
	args := m.Called(ctx, reference)
	return args.Get(0).(payment.Result)
}

// =====================
// Helpers
// =====================

// HTTPErrorのStatusとMessageを確認
func assertHTTPError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "err=%v", err) {
		assert.Equal(t, status, he.Status)
		assert.Equal(t, msg, he.Message)
	}
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func menuItem(id int64, p string, available bool) model.MenuItem {
	return model.MenuItem{ID: id, Name: "item", Price: price(p), Available: available}
}
