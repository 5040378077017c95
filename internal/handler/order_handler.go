package handler

import (
	"net/http"

	"chefchain/internal/config"
	"chefchain/internal/middleware"
	"chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderItemRequest struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,gte=1"`
}

// order_itemsは任意。カートがあればそこに足して確定する
type SubmitOrderRequest struct {
	TableNumber *string            `json:"table_number" validate:"omitempty,max=10"`
	OrderType   string             `json:"order_type" validate:"omitempty,oneof=dine_in takeaway delivery"`
	OrderItems  []OrderItemRequest `json:"order_items" validate:"omitempty,dive"`
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.list)
	g.POST("/create", h.create)
	g.GET("/history", h.history)
	g.GET("/:id", h.detail)

	// スタッフ操作
	g.PATCH("/:id/status", h.updateStatus, middleware.StaffRoleGuard())
	g.POST("/:id/cancel", h.cancel, middleware.CancelRoleGuard())
}

func (h *OrderHandler) list(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ListOrders(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req SubmitOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	items := make([]usecase.SubmitOrderItem, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		items = append(items, usecase.SubmitOrderItem{MenuItemID: it.ItemID, Quantity: it.Quantity})
	}

	out, err := h.uc.SubmitOrder(c.Request().Context(), userID, usecase.SubmitOrderInput{
		TableNumber: req.TableNumber,
		OrderType:   req.OrderType,
		Items:       items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) history(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ListOrderHistory(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetOrderDetail(c.Request().Context(), actor, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderStatusUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AdvanceStatus(c.Request().Context(), actor, orderID, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.CancelOrder(c.Request().Context(), actor, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
