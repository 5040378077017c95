package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"chefchain/internal/domain/model"
	"chefchain/internal/event"
	repo "chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderFixture struct {
	tx     *TxManagerMock
	orders *OrderRepoMock
	items  *OrderItemRepoMock
	menu   *MenuItemRepoMock
	audit  *AuditRepoMock
	pub    *PublisherMock
	uc     *usecase.OrderUsecase
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders: new(OrderRepoMock),
		items:  new(OrderItemRepoMock),
		menu:   new(MenuItemRepoMock),
		audit:  new(AuditRepoMock),
		pub:    new(PublisherMock),
	}
	f.tx = &TxManagerMock{Repos: &TxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		menuItems:  f.menu,
		auditLogs:  f.audit,
	}}
	f.tx.On("WithinTx", mock.Anything).Return()
	f.uc = usecase.NewOrderUsecase(f.tx, f.orders, f.pub, zap.NewNop().Sugar())
	return f
}

func (f *orderFixture) assertExpectations(t *testing.T) {
	f.orders.AssertExpectations(t)
	f.items.AssertExpectations(t)
	f.menu.AssertExpectations(t)
	f.audit.AssertExpectations(t)
	f.pub.AssertExpectations(t)
}

func strPtr(s string) *string { return &s }

func pendingCart(id, customerID int64, items ...model.OrderItem) model.Order {
	return model.Order{
		ID:         id,
		CustomerID: customerID,
		OrderType:  model.OrderTypeDineIn,
		Status:     model.OrderStatusPending,
		Items:      items,
	}
}

func line(id, menuID, qty int64, p string) model.OrderItem {
	return model.OrderItem{ID: id, MenuItemID: &menuID, Quantity: qty, MenuItem: menuItem(menuID, p, true)}
}

// =====================
// SubmitOrder
// =====================

func TestSubmitOrder_PendingCartIsConfirmedWithSnapshot(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	cart := pendingCart(10, 7, line(100, 3, 2, "15.00"))
	submitted := cart
	submitted.Status = model.OrderStatusConfirmed
	submitted.TableNumber = strPtr("A1")
	submitted.OrderType = model.OrderTypeTakeaway

	f.orders.On("FindPendingByCustomerID", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("GetOrCreatePending", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("FindByID", mock.Anything, int64(10)).Return(cart, nil).Once()
	f.orders.On("UpdateDetails", mock.Anything, int64(10), strPtr("A1"), model.OrderTypeTakeaway).Return(nil).Once()
	f.items.On("SnapshotLine", mock.Anything, int64(100), "15.00", "item").Return(nil).Once()
	f.orders.On("UpdateStatus", mock.Anything, int64(10), model.OrderStatusPending, model.OrderStatusConfirmed).Return(nil).Once()
	f.orders.On("FindByID", mock.Anything, int64(10)).Return(submitted, nil).Once()
	f.pub.On("PublishOrderStatusChanged", mock.Anything, mock.MatchedBy(func(ev event.OrderStatusChanged) bool {
		return ev.OrderID == 10 && ev.OldStatus == model.OrderStatusPending && ev.NewStatus == model.OrderStatusConfirmed && ev.ChangedBy == 7
	})).Return(nil).Once()

	out, err := f.uc.SubmitOrder(ctx, 7, usecase.SubmitOrderInput{TableNumber: strPtr(" A1 "), OrderType: "takeaway"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusConfirmed, out.Status)
	assert.Equal(t, "30.00", out.Total)
	f.assertExpectations(t)
}

func TestSubmitOrder_JollofAndWaterAtTableT4(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	cart := pendingCart(11, 7, line(200, 1, 2, "15.00"), line(201, 2, 1, "1.00"))
	cart.Items[0].MenuItem.Name = "Jollof Rice"
	cart.Items[1].MenuItem.Name = "Water"

	submitted := cart
	submitted.Status = model.OrderStatusConfirmed
	submitted.TableNumber = strPtr("T4")
	submitted.Items = []model.OrderItem{cart.Items[0], cart.Items[1]}
	for i := range submitted.Items {
		p := submitted.Items[i].MenuItem.Price
		submitted.Items[i].UnitPrice = &p
	}

	f.orders.On("FindPendingByCustomerID", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("GetOrCreatePending", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("FindByID", mock.Anything, int64(11)).Return(cart, nil).Once()
	f.orders.On("UpdateDetails", mock.Anything, int64(11), strPtr("T4"), model.OrderTypeDineIn).Return(nil).Once()
	f.items.On("SnapshotLine", mock.Anything, int64(200), "15.00", "Jollof Rice").Return(nil).Once()
	f.items.On("SnapshotLine", mock.Anything, int64(201), "1.00", "Water").Return(nil).Once()
	f.orders.On("UpdateStatus", mock.Anything, int64(11), model.OrderStatusPending, model.OrderStatusConfirmed).Return(nil).Once()
	f.orders.On("FindByID", mock.Anything, int64(11)).Return(submitted, nil).Once()
	f.pub.On("PublishOrderStatusChanged", mock.Anything, mock.Anything).Return(nil).Once()

	out, err := f.uc.SubmitOrder(ctx, 7, usecase.SubmitOrderInput{TableNumber: strPtr("T4"), OrderType: "dine_in"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusConfirmed, out.Status)
	assert.Len(t, out.OrderItems, 2)
	assert.Equal(t, "31.00", out.Total)
	require.NotNil(t, out.TableNumber)
	assert.Equal(t, "T4", *out.TableNumber)
	f.assertExpectations(t)
}

func TestSubmitOrder_MergesSubmittedItemsIntoCart(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	cart := pendingCart(10, 7)
	withItem := pendingCart(10, 7, line(100, 3, 1, "4.50"))

	f.orders.On("FindPendingByCustomerID", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("GetOrCreatePending", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.menu.On("FindByID", mock.Anything, int64(3)).Return(menuItem(3, "4.50", true), nil).Once()
	f.items.On("AddQuantity", mock.Anything, int64(10), int64(3), int64(1)).Return(nil).Once()
	f.orders.On("FindByID", mock.Anything, int64(10)).Return(withItem, nil)
	f.orders.On("UpdateDetails", mock.Anything, int64(10), (*string)(nil), model.OrderTypeDineIn).Return(nil).Once()
	f.items.On("SnapshotLine", mock.Anything, int64(100), "4.50", "item").Return(nil).Once()
	f.orders.On("UpdateStatus", mock.Anything, int64(10), model.OrderStatusPending, model.OrderStatusConfirmed).Return(nil).Once()
	f.pub.On("PublishOrderStatusChanged", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.uc.SubmitOrder(ctx, 7, usecase.SubmitOrderInput{
		Items: []usecase.SubmitOrderItem{{MenuItemID: 3, Quantity: 1}},
	})
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestSubmitOrder_EmptyCartRejected(t *testing.T) {
	f := newOrderFixture()
	cart := pendingCart(10, 7)

	f.orders.On("FindPendingByCustomerID", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("GetOrCreatePending", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("FindByID", mock.Anything, int64(10)).Return(cart, nil).Once()

	_, err := f.uc.SubmitOrder(context.Background(), 7, usecase.SubmitOrderInput{})
	assertHTTPError(t, err, http.StatusBadRequest, "order has no items")
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.pub.AssertNotCalled(t, "PublishOrderStatusChanged", mock.Anything, mock.Anything)
}

func TestSubmitOrder_NoCartCreatesConfirmedOrder(t *testing.T) {
	f := newOrderFixture()

	f.orders.On("FindPendingByCustomerID", mock.Anything, int64(7)).Return(model.Order{}, repo.ErrNotFound).Once()
	f.menu.On("FindByID", mock.Anything, int64(3)).Return(menuItem(3, "15.00", true), nil).Once()
	f.menu.On("FindByID", mock.Anything, int64(4)).Return(menuItem(4, "1.00", true), nil).Once()

	var created *model.Order
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*model.Order")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*model.Order)
			created.ID = 42
		}).Return(nil).Once()
	f.orders.On("FindByID", mock.Anything, int64(42)).Return(model.Order{ID: 42, CustomerID: 7, Status: model.OrderStatusConfirmed}, nil).Once()
	// pendingを経ていないので遷移元は空
	f.pub.On("PublishOrderStatusChanged", mock.Anything, mock.MatchedBy(func(ev event.OrderStatusChanged) bool {
		return ev.OrderID == 42 && ev.OldStatus == "" && ev.NewStatus == model.OrderStatusConfirmed
	})).Return(nil).Once()

	_, err := f.uc.SubmitOrder(context.Background(), 7, usecase.SubmitOrderInput{
		OrderType: "delivery",
		Items: []usecase.SubmitOrderItem{
			{MenuItemID: 3, Quantity: 1},
			{MenuItemID: 4, Quantity: 2},
			{MenuItemID: 3, Quantity: 2},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, model.OrderStatusConfirmed, created.Status)
	assert.Equal(t, model.OrderTypeDelivery, created.OrderType)
	require.Len(t, created.Items, 2)
	assert.Equal(t, int64(3), created.Items[0].Quantity)
	assert.Equal(t, "15.00", created.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "item", created.Items[0].ItemName)
	assert.Equal(t, "47.00", created.Total().StringFixed(2))
	f.assertExpectations(t)
}

func TestSubmitOrder_NoCartNoItemsRejected(t *testing.T) {
	f := newOrderFixture()
	f.orders.On("FindPendingByCustomerID", mock.Anything, int64(7)).Return(model.Order{}, repo.ErrNotFound).Once()

	_, err := f.uc.SubmitOrder(context.Background(), 7, usecase.SubmitOrderInput{})
	assertHTTPError(t, err, http.StatusBadRequest, "order has no items")
}

func TestSubmitOrder_InputValidation(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	_, err := f.uc.SubmitOrder(ctx, 0, usecase.SubmitOrderInput{})
	assertHTTPError(t, err, http.StatusUnauthorized, "unauthorized")

	_, err = f.uc.SubmitOrder(ctx, 7, usecase.SubmitOrderInput{OrderType: "drive_through"})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid order_type")

	_, err = f.uc.SubmitOrder(ctx, 7, usecase.SubmitOrderInput{TableNumber: strPtr("12345678901")})
	assertHTTPError(t, err, http.StatusBadRequest, "table_number too long")

	_, err = f.uc.SubmitOrder(ctx, 7, usecase.SubmitOrderInput{Items: []usecase.SubmitOrderItem{{MenuItemID: 1, Quantity: 0}}})
	assertHTTPError(t, err, http.StatusBadRequest, "quantity must be at least 1")

	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestSubmitOrder_LostRaceIsConflict(t *testing.T) {
	f := newOrderFixture()
	cart := pendingCart(10, 7, line(100, 3, 1, "2.00"))

	f.orders.On("FindPendingByCustomerID", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("GetOrCreatePending", mock.Anything, int64(7)).Return(cart, nil).Once()
	f.orders.On("FindByID", mock.Anything, int64(10)).Return(cart, nil).Once()
	f.orders.On("UpdateDetails", mock.Anything, int64(10), mock.Anything, model.OrderTypeDineIn).Return(nil).Once()
	f.items.On("SnapshotLine", mock.Anything, int64(100), "2.00", "item").Return(nil).Once()
	f.orders.On("UpdateStatus", mock.Anything, int64(10), model.OrderStatusPending, model.OrderStatusConfirmed).Return(repo.ErrConflict).Once()

	_, err := f.uc.SubmitOrder(context.Background(), 7, usecase.SubmitOrderInput{})
	assertHTTPError(t, err, http.StatusConflict, "order already submitted")
}

func TestSubmitOrder_UnavailableMenuItem(t *testing.T) {
	f := newOrderFixture()
	f.orders.On("FindPendingByCustomerID", mock.Anything, int64(7)).Return(model.Order{}, repo.ErrNotFound).Once()
	f.menu.On("FindByID", mock.Anything, int64(3)).Return(menuItem(3, "5.00", false), nil).Once()

	_, err := f.uc.SubmitOrder(context.Background(), 7, usecase.SubmitOrderInput{
		Items: []usecase.SubmitOrderItem{{MenuItemID: 3, Quantity: 1}},
	})
	assertHTTPError(t, err, http.StatusBadRequest, "menu item unavailable")
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =====================
// Listing / detail
// =====================

func TestListOrders_StaffSeeAllCustomersSeeOwn(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.orders.On("List", mock.Anything, mock.MatchedBy(func(q repo.OrderListFilter) bool {
		return q.CustomerID == nil
	})).Return([]model.Order{{ID: 2}, {ID: 1}}, nil).Once()
	f.orders.On("List", mock.Anything, mock.MatchedBy(func(q repo.OrderListFilter) bool {
		return q.CustomerID != nil && *q.CustomerID == 7 && len(q.Statuses) == 0
	})).Return([]model.Order{{ID: 1, CustomerID: 7}}, nil).Once()

	all, err := f.uc.ListOrders(ctx, usecase.Actor{UserID: 1, Role: model.RoleChef})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.uc.ListOrders(ctx, usecase.Actor{UserID: 7, Role: model.RoleCustomer})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	f.orders.AssertExpectations(t)
}

func TestListOrderHistory_FiltersStatuses(t *testing.T) {
	f := newOrderFixture()

	f.orders.On("List", mock.Anything, mock.MatchedBy(func(q repo.OrderListFilter) bool {
		return *q.CustomerID == 7 && assert.ObjectsAreEqual(model.HistoryOrderStatuses, q.Statuses)
	})).Return([]model.Order{}, nil).Once()

	outs, err := f.uc.ListOrderHistory(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, outs)

	f.orders.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	_, err = f.uc.ListOrderHistory(context.Background(), 7)
	assertHTTPError(t, err, http.StatusInternalServerError, "db error")
}

func TestGetOrderDetail_Visibility(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{ID: 1, CustomerID: 7, Status: model.OrderStatusReady}, nil)
	f.orders.On("FindByID", mock.Anything, int64(2)).Return(model.Order{ID: 2, CustomerID: 7, Status: model.OrderStatusPending}, nil)
	f.orders.On("FindByID", mock.Anything, int64(3)).Return(model.Order{}, repo.ErrNotFound)

	out, err := f.uc.GetOrderDetail(ctx, usecase.Actor{UserID: 7, Role: model.RoleCustomer}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)

	_, err = f.uc.GetOrderDetail(ctx, usecase.Actor{UserID: 8, Role: model.RoleCustomer}, 1)
	assertHTTPError(t, err, http.StatusNotFound, "not found")

	_, err = f.uc.GetOrderDetail(ctx, usecase.Actor{UserID: 7, Role: model.RoleCustomer}, 2)
	assertHTTPError(t, err, http.StatusNotFound, "not found")

	_, err = f.uc.GetOrderDetail(ctx, usecase.Actor{UserID: 1, Role: model.RoleRider}, 2)
	assert.NoError(t, err)

	_, err = f.uc.GetOrderDetail(ctx, usecase.Actor{UserID: 1, Role: model.RoleAdmin}, 3)
	assertHTTPError(t, err, http.StatusNotFound, "not found")
}
