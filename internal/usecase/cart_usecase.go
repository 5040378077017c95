package usecase

import (
	"context"
	"errors"
	"net/http"

	repo "chefchain/internal/repository"
)

type AddCartItemInput struct {
	MenuItemID int64
	Quantity   int64
}

// カート取得（無ければpendingの注文を作って空で返す）
func (u *OrderUsecase) GetOrCreateCart(ctx context.Context, customerID int64) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.orders.GetOrCreatePending(ctx, customerID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutput(cart), nil
}

// カートに追加（同一メニューは数量加算）
func (u *OrderUsecase) AddItem(ctx context.Context, customerID int64, in AddCartItemInput) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.MenuItemID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid item_id")
	}
	if in.Quantity < 1 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be at least 1")
	}

	var cartID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := findOrderableMenuItem(ctx, r, in.MenuItemID); err != nil {
			return err
		}

		cart, err := r.Orders().GetOrCreatePending(ctx, customerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		cartID = cart.ID

		if err := r.OrderItems().AddQuantity(ctx, cart.ID, in.MenuItemID, in.Quantity); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	return u.cartOutput(ctx, cartID)
}

// 数量変更。0以下は明細削除。自分のカートの明細でなければ404
func (u *OrderUsecase) UpdateItemQuantity(ctx context.Context, customerID int64, itemID int64, quantity int64) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var cartID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 先にカートをロックして、確定と同時に書き換えないようにする
		cart, err := r.Orders().GetOrCreatePending(ctx, customerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		cartID = cart.ID

		owned, err := r.OrderItems().IsInPendingCartOf(ctx, itemID, customerID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !owned {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if quantity <= 0 {
			err = r.OrderItems().DeleteByID(ctx, itemID)
		} else {
			err = r.OrderItems().UpdateQuantity(ctx, itemID, quantity)
		}
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	return u.cartOutput(ctx, cartID)
}

// 明細削除
func (u *OrderUsecase) RemoveItem(ctx context.Context, customerID int64, itemID int64) (OrderOutput, error) {
	return u.UpdateItemQuantity(ctx, customerID, itemID, 0)
}

func (u *OrderUsecase) cartOutput(ctx context.Context, cartID int64) (OrderOutput, error) {
	cart, err := u.orders.FindByID(ctx, cartID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutput(cart), nil
}
