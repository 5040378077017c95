package handler

import (
	"net/http"
	"strconv"

	"chefchain/internal/config"
	"chefchain/internal/middleware"
	"chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /categories と /menu。GETは公開、書き込みは管理者のみ
type CatalogHandler struct {
	uc *usecase.CatalogUsecase
}

func NewCatalogHandler(uc *usecase.CatalogUsecase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
}

type MenuItemRequest struct {
	Name        string           `json:"name" validate:"required,max=150"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Image       *string          `json:"image" validate:"omitempty,max=255"`
	Available   *bool            `json:"available"`
	Category    *int64           `json:"category" validate:"omitempty,gt=0"`
}

// PATCH用。送られた項目だけ変える
type MenuItemPatchRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=150"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image" validate:"omitempty,max=255"`
	Available   *bool            `json:"available"`
	Category    *int64           `json:"category" validate:"omitempty,gt=0"`
}

func (h *CatalogHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.CatalogRoleGuard(),
	}

	e.GET("/categories", h.listCategories)
	e.POST("/categories", h.createCategory, admin...)
	e.PUT("/categories/:id", h.updateCategory, admin...)
	e.DELETE("/categories/:id", h.deleteCategory, admin...)

	e.GET("/menu", h.listMenu)
	e.GET("/menu/:id", h.getMenuItem)
	e.POST("/menu", h.createMenuItem, admin...)
	e.PUT("/menu/:id", h.replaceMenuItem, admin...)
	e.PATCH("/menu/:id", h.patchMenuItem, admin...)
	e.DELETE("/menu/:id", h.deleteMenuItem, admin...)
}

// =====================
// categories
// =====================

func (h *CatalogHandler) listCategories(c echo.Context) error {
	out, err := h.uc.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) createCategory(c echo.Context) error {
	var req CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateCategory(c.Request().Context(), usecase.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CatalogHandler) updateCategory(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateCategory(c.Request().Context(), id, usecase.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) deleteCategory(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.DeleteCategory(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// =====================
// menu
// =====================

// ?category=&search=&available=
func (h *CatalogHandler) listMenu(c echo.Context) error {
	in := usecase.ListMenuItemsInput{Search: c.QueryParam("search")}

	if v := c.QueryParam("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid category"})
		}
		in.CategoryID = &id
	}
	if v := c.QueryParam("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid available"})
		}
		in.AvailableOnly = b
	}

	out, err := h.uc.ListMenuItems(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) getMenuItem(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetMenuItem(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (req MenuItemRequest) toInput() usecase.MenuItemInput {
	return usecase.MenuItemInput{
		CategoryID:  req.Category,
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Image:       req.Image,
		Available:   req.Available,
	}
}

func (h *CatalogHandler) createMenuItem(c echo.Context) error {
	var req MenuItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateMenuItem(c.Request().Context(), req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CatalogHandler) replaceMenuItem(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req MenuItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ReplaceMenuItem(c.Request().Context(), id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) patchMenuItem(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req MenuItemPatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.PatchMenuItem(c.Request().Context(), id, usecase.MenuItemPatch{
		CategoryID:  req.Category,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Available:   req.Available,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) deleteMenuItem(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.DeleteMenuItem(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
