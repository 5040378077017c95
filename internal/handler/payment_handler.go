package handler

import (
	"net/http"

	"chefchain/internal/config"
	"chefchain/internal/middleware"
	"chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type InitializePaymentRequest struct {
	OrderID     int64  `json:"order_id" validate:"required,gt=0"`
	CallbackURL string `json:"callback_url" validate:"omitempty,url"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/payments")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("/initialize", h.initialize)
	g.GET("/verify/:reference", h.verify)
}

func (h *PaymentHandler) initialize(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}

	var req InitializePaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.InitializeOrderPayment(c.Request().Context(), actor, usecase.InitializePaymentInput{
		OrderID:     req.OrderID,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return writePaymentResult(c, out)
}

func (h *PaymentHandler) verify(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.VerifyPayment(c.Request().Context(), actor, c.Param("reference"))
	if err != nil {
		return writeError(c, err)
	}
	return writePaymentResult(c, out)
}

// 決済代行がNGなら400で{status:false, message}
func writePaymentResult(c echo.Context, out usecase.PaymentOutput) error {
	if !out.Status {
		return c.JSON(http.StatusBadRequest, out)
	}
	return c.JSON(http.StatusOK, out)
}
