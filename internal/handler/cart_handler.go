package handler

import (
	"net/http"

	"chefchain/internal/config"
	"chefchain/internal/middleware"
	"chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP。カートはpendingの注文
type CartHandler struct {
	uc *usecase.OrderUsecase
}

// DI
func NewCartHandler(uc *usecase.OrderUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// quantityを省略したら1
type AddCartRequest struct {
	Item     int64  `json:"item" validate:"required,gt=0"`
	Quantity *int64 `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int64 `json:"quantity" validate:"required"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.getCart)
	g.POST("/add", h.addToCart)
	g.PATCH("/items/:id", h.patchItem)
	g.DELETE("/items/:id", h.deleteItem)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetOrCreateCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req AddCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	qty := int64(1)
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	out, err := h.uc.AddItem(c.Request().Context(), userID, usecase.AddCartItemInput{
		MenuItemID: req.Item,
		Quantity:   qty,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req UpdateCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateItemQuantity(c.Request().Context(), userID, itemID, *req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), userID, itemID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
