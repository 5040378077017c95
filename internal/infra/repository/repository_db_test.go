package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"chefchain/internal/domain/model"
	"chefchain/internal/infra/db"
	gormrepo "chefchain/internal/infra/repository"
	repo "chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 実DBに対するテスト。TEST_DATABASE_DSN（無ければDATABASE_URL）が無ければskip
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// テストごとに別ユーザーを作る（他のテストのデータと混ざらないように）
func createCustomer(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	u := &model.User{
		Username:     "db-test-" + uuid.NewString()[:8],
		Email:        "db-test@example.com",
		PasswordHash: "x",
		Role:         model.RoleCustomer,
		IsActive:     true,
	}
	require.NoError(t, gormrepo.NewUserGormRepository(gdb).Create(context.Background(), u))
	return u.ID
}

func createMenuItem(t *testing.T, gdb *gorm.DB, name, p string) model.MenuItem {
	t.Helper()
	m, err := gormrepo.NewMenuItemGormRepository(gdb).Create(context.Background(), model.MenuItem{
		Name:      name,
		Price:     decimal.RequireFromString(p),
		Available: true,
	})
	require.NoError(t, err)
	return m
}

func TestOrderItemGorm_AddQuantityMergesLine(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	orders := gormrepo.NewOrderGormRepository(gdb)
	items := gormrepo.NewOrderItemGormRepository(gdb)

	customerID := createCustomer(t, gdb)
	jollof := createMenuItem(t, gdb, "Jollof Rice", "15.00")

	cart, err := orders.GetOrCreatePending(ctx, customerID)
	require.NoError(t, err)

	require.NoError(t, items.AddQuantity(ctx, cart.ID, jollof.ID, 2))
	require.NoError(t, items.AddQuantity(ctx, cart.ID, jollof.ID, 3))

	got, err := orders.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(5), got.Items[0].Quantity)
	require.NotNil(t, got.Items[0].MenuItemID)
	assert.Equal(t, jollof.ID, *got.Items[0].MenuItemID)
}

func TestOrderGorm_OnePendingCartPerCustomer(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	orders := gormrepo.NewOrderGormRepository(gdb)

	customerID := createCustomer(t, gdb)

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := orders.GetOrCreatePending(ctx, customerID)
			ids[i], errs[i] = o.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, gdb.Model(&model.Order{}).
		Where("customer_id = ? AND status = ?", customerID, model.OrderStatusPending).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 部分インデックスが2件目を止める
	err := orders.Create(ctx, &model.Order{
		CustomerID: customerID,
		OrderType:  model.OrderTypeDineIn,
		Status:     model.OrderStatusPending,
	})
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestOrderGorm_UpdateStatusIsCompareAndSet(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	orders := gormrepo.NewOrderGormRepository(gdb)

	cart, err := orders.GetOrCreatePending(ctx, createCustomer(t, gdb))
	require.NoError(t, err)

	require.NoError(t, orders.UpdateStatus(ctx, cart.ID, model.OrderStatusPending, model.OrderStatusConfirmed))
	err = orders.UpdateStatus(ctx, cart.ID, model.OrderStatusPending, model.OrderStatusConfirmed)
	assert.ErrorIs(t, err, repo.ErrConflict)
}

func TestOrderGorm_ListNewestFirst(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	orders := gormrepo.NewOrderGormRepository(gdb)

	customerID := createCustomer(t, gdb)
	base := time.Now().Add(-time.Hour)

	var created []int64
	for i := 0; i < 3; i++ {
		o := &model.Order{
			CustomerID: customerID,
			OrderType:  model.OrderTypeTakeaway,
			Status:     model.OrderStatusConfirmed,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, orders.Create(ctx, o))
		created = append(created, o.ID)
	}

	got, err := orders.List(ctx, repo.OrderListFilter{CustomerID: &customerID})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{created[2], created[1], created[0]}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestOrderFlow_JollofAndWaterAtTableT4(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	orders := gormrepo.NewOrderGormRepository(gdb)
	uc := usecase.NewOrderUsecase(gormrepo.NewTxManagerGorm(gdb), orders, nil, zap.NewNop().Sugar())

	customerID := createCustomer(t, gdb)
	jollof := createMenuItem(t, gdb, "Jollof Rice", "15.00")
	water := createMenuItem(t, gdb, "Water", "1.00")

	first, err := uc.GetOrCreateCart(ctx, customerID)
	require.NoError(t, err)
	again, err := uc.GetOrCreateCart(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = uc.AddItem(ctx, customerID, usecase.AddCartItemInput{MenuItemID: jollof.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, customerID, usecase.AddCartItemInput{MenuItemID: water.ID, Quantity: 1})
	require.NoError(t, err)

	table := "T4"
	submitted, err := uc.SubmitOrder(ctx, customerID, usecase.SubmitOrderInput{TableNumber: &table, OrderType: "dine_in"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, submitted.ID)
	assert.Equal(t, model.OrderStatusConfirmed, submitted.Status)
	assert.Len(t, submitted.OrderItems, 2)
	assert.Equal(t, "31.00", submitted.Total)

	// 確定後の値上げは合計に影響しない
	require.NoError(t, gdb.Model(&model.MenuItem{}).Where("id = ?", jollof.ID).Update("price", "20.00").Error)
	detail, err := uc.GetOrderDetail(ctx, usecase.Actor{UserID: customerID, Role: model.RoleCustomer}, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, "31.00", detail.Total)

	// カートが無ければ新しいconfirmedの注文になる
	next, err := uc.SubmitOrder(ctx, customerID, usecase.SubmitOrderInput{
		Items: []usecase.SubmitOrderItem{{MenuItemID: water.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, submitted.ID, next.ID)
	assert.Equal(t, model.OrderStatusConfirmed, next.Status)

	history, err := uc.ListOrderHistory(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, next.ID, history[0].ID)
	for _, o := range history {
		assert.NotEqual(t, model.OrderStatusPending, o.Status)
	}
}

func TestMenuItemGorm_DeleteKeepsSubmittedSnapshot(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	orders := gormrepo.NewOrderGormRepository(gdb)
	menu := gormrepo.NewMenuItemGormRepository(gdb)
	uc := usecase.NewOrderUsecase(gormrepo.NewTxManagerGorm(gdb), orders, nil, zap.NewNop().Sugar())

	customerID := createCustomer(t, gdb)
	jollof := createMenuItem(t, gdb, "Jollof Rice", "15.00")

	submitted, err := uc.SubmitOrder(ctx, customerID, usecase.SubmitOrderInput{
		Items: []usecase.SubmitOrderItem{{MenuItemID: jollof.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// 別のカートにも入れておく
	_, err = uc.AddItem(ctx, customerID, usecase.AddCartItemInput{MenuItemID: jollof.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, menu.Delete(ctx, jollof.ID))
	_, err = menu.FindByID(ctx, jollof.ID)
	assert.True(t, errors.Is(err, repo.ErrNotFound))

	o, err := orders.FindByID(ctx, submitted.ID)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Nil(t, o.Items[0].MenuItemID)
	assert.Equal(t, "Jollof Rice", o.Items[0].DisplayName())
	assert.Equal(t, "30.00", o.Total().StringFixed(2))

	cart, err := orders.FindPendingByCustomerID(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
