package handler

import (
	"net/http"
	"strconv"

	"chefchain/internal/config"
	"chefchain/internal/middleware"
	"chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	authUC  *usecase.AuthUsecase
	auditUC *usecase.AuditLogUsecase
}

func NewAdminHandler(authUC *usecase.AuthUsecase, auditUC *usecase.AuditLogUsecase) *AdminHandler {
	return &AdminHandler{authUC: authUC, auditUC: auditUC}
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin rider chef customer"`
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	// /admin 配下は全部「JWT必須 + token_version一致 + admin限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)

	admin.PUT("/users/:id/role", h.setRole)
	admin.GET("/audit-logs", h.listAuditLogs)
	admin.GET("/orders/:id/audit-logs", h.orderTrail)
}

func (h *AdminHandler) orderTrail(c echo.Context) error {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	logs, err := h.auditUC.OrderTrail(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *AdminHandler) setRole(c echo.Context) error {
	actor, ok := getActor(c)
	if !ok {
		return unauthorized(c)
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
	}

	var req SetRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.authUC.SetRole(c.Request().Context(), actor, userID, req.Role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) listAuditLogs(c echo.Context) error {
	in := usecase.ListAuditLogsInput{
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		From:         c.QueryParam("from"),
		To:           c.QueryParam("to"),
	}

	var err error
	if in.ActorUserID, err = optionalInt64(c, "actor_user_id"); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid actor_user_id"})
	}
	if in.ResourceID, err = optionalInt64(c, "resource_id"); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource_id"})
	}
	if v := c.QueryParam("limit"); v != "" {
		if in.Limit, err = strconv.Atoi(v); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if in.Offset, err = strconv.Atoi(v); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		}
	}

	logs, err := h.auditUC.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

func optionalInt64(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
