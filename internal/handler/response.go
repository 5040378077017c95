package handler

import (
	"net/http"
	"strconv"

	"chefchain/internal/domain/model"
	"chefchain/internal/middleware"
	"chefchain/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// Bind + Validate。失敗は400
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

//middleware.AuthJWT が c.Set した値を取り出す

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func getActor(c echo.Context) (usecase.Actor, bool) {
	id, ok := getUserIDFromContext(c)
	if !ok {
		return usecase.Actor{}, false
	}
	role, _ := c.Get(middleware.CtxUserRoleKey).(model.Role)
	return usecase.Actor{UserID: id, Role: role}, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

// パスの :id
func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
