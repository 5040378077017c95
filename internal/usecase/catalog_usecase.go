package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"chefchain/internal/domain/model"
	repo "chefchain/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	maxMenuItemNameLen = 150
	maxCategoryNameLen = 100
)

// numeric(8,2)に入る上限
var maxPrice = decimal.NewFromInt(1000000)

type CatalogUsecase struct {
	menuItems  repo.MenuItemRepository
	categories repo.CategoryRepository
}

// DI
func NewCatalogUsecase(menuItems repo.MenuItemRepository, categories repo.CategoryRepository) *CatalogUsecase {
	return &CatalogUsecase{menuItems: menuItems, categories: categories}
}

type MenuItemOutput struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       string  `json:"price"`
	Image       *string `json:"image"`
	Available   bool    `json:"available"`
	CategoryID  *int64  `json:"category_id"`
}

type CategoryOutput struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Items       []MenuItemOutput `json:"items"`
}

type ListMenuItemsInput struct {
	CategoryID    *int64
	Search        string
	AvailableOnly bool
}

// PUT/POSTの入力。Availableがnilならtrue
type MenuItemInput struct {
	CategoryID  *int64
	Name        string
	Description *string
	Price       decimal.Decimal
	Image       *string
	Available   *bool
}

// PATCHの入力。nilの項目は変更しない
type MenuItemPatch struct {
	CategoryID  *int64
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Image       *string
	Available   *bool
}

type CategoryInput struct {
	Name        string
	Description *string
}

func toMenuItemOutput(m model.MenuItem) MenuItemOutput {
	return MenuItemOutput{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       money(m.Price),
		Image:       m.Image,
		Available:   m.Available,
		CategoryID:  m.CategoryID,
	}
}

func toCategoryOutput(c model.Category) CategoryOutput {
	items := make([]MenuItemOutput, 0, len(c.MenuItems))
	for _, m := range c.MenuItems {
		items = append(items, toMenuItemOutput(m))
	}
	return CategoryOutput{ID: c.ID, Name: c.Name, Description: c.Description, Items: items}
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if !p.Equal(p.Round(2)) {
		return NewHTTPError(http.StatusBadRequest, "price must have at most 2 decimal places")
	}
	if p.GreaterThanOrEqual(maxPrice) {
		return NewHTTPError(http.StatusBadRequest, "price too large")
	}
	return nil
}

func validateName(name string, max int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewHTTPError(http.StatusBadRequest, "name required")
	}
	if len([]rune(name)) > max {
		return "", NewHTTPError(http.StatusBadRequest, "name too long")
	}
	return name, nil
}

// カテゴリ指定時は存在チェック
func (u *CatalogUsecase) checkCategory(ctx context.Context, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	if *categoryID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid category")
	}
	_, err := u.categories.FindByID(ctx, *categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusBadRequest, "category not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *CatalogUsecase) ListMenuItems(ctx context.Context, in ListMenuItemsInput) ([]MenuItemOutput, error) {
	if len(in.Search) > 100 {
		return []MenuItemOutput{}, NewHTTPError(http.StatusBadRequest, "search too long")
	}

	items, err := u.menuItems.List(ctx, repo.MenuItemFilter{
		CategoryID:    in.CategoryID,
		Search:        strings.TrimSpace(in.Search),
		AvailableOnly: in.AvailableOnly,
	})
	if err != nil {
		return []MenuItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]MenuItemOutput, 0, len(items))
	for _, m := range items {
		outs = append(outs, toMenuItemOutput(m))
	}
	return outs, nil
}

func (u *CatalogUsecase) GetMenuItem(ctx context.Context, id int64) (MenuItemOutput, error) {
	m, err := u.findMenuItem(ctx, id)
	if err != nil {
		return MenuItemOutput{}, err
	}
	return toMenuItemOutput(m), nil
}

func (u *CatalogUsecase) findMenuItem(ctx context.Context, id int64) (model.MenuItem, error) {
	if id <= 0 {
		return model.MenuItem{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := u.menuItems.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.MenuItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.MenuItem{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return m, nil
}

func (u *CatalogUsecase) CreateMenuItem(ctx context.Context, in MenuItemInput) (MenuItemOutput, error) {
	m, err := u.buildMenuItem(ctx, in)
	if err != nil {
		return MenuItemOutput{}, err
	}

	created, err := u.menuItems.Create(ctx, m)
	if errors.Is(err, repo.ErrNotFound) {
		return MenuItemOutput{}, NewHTTPError(http.StatusBadRequest, "category not found")
	}
	if err != nil {
		return MenuItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toMenuItemOutput(created), nil
}

// PUT（全項目置き換え）
func (u *CatalogUsecase) ReplaceMenuItem(ctx context.Context, id int64, in MenuItemInput) (MenuItemOutput, error) {
	if _, err := u.findMenuItem(ctx, id); err != nil {
		return MenuItemOutput{}, err
	}

	m, err := u.buildMenuItem(ctx, in)
	if err != nil {
		return MenuItemOutput{}, err
	}
	m.ID = id

	return u.saveMenuItem(ctx, m)
}

// PATCH（指定項目だけ）
func (u *CatalogUsecase) PatchMenuItem(ctx context.Context, id int64, in MenuItemPatch) (MenuItemOutput, error) {
	m, err := u.findMenuItem(ctx, id)
	if err != nil {
		return MenuItemOutput{}, err
	}

	if in.Name != nil {
		name, err := validateName(*in.Name, maxMenuItemNameLen)
		if err != nil {
			return MenuItemOutput{}, err
		}
		m.Name = name
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return MenuItemOutput{}, err
		}
		m.Price = *in.Price
	}
	if in.CategoryID != nil {
		if err := u.checkCategory(ctx, in.CategoryID); err != nil {
			return MenuItemOutput{}, err
		}
		m.CategoryID = in.CategoryID
	}
	if in.Description != nil {
		m.Description = in.Description
	}
	if in.Image != nil {
		m.Image = in.Image
	}
	if in.Available != nil {
		m.Available = *in.Available
	}

	return u.saveMenuItem(ctx, m)
}

func (u *CatalogUsecase) saveMenuItem(ctx context.Context, m model.MenuItem) (MenuItemOutput, error) {
	err := u.menuItems.Update(ctx, m)
	if errors.Is(err, repo.ErrNotFound) {
		return MenuItemOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return MenuItemOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.GetMenuItem(ctx, m.ID)
}

func (u *CatalogUsecase) buildMenuItem(ctx context.Context, in MenuItemInput) (model.MenuItem, error) {
	name, err := validateName(in.Name, maxMenuItemNameLen)
	if err != nil {
		return model.MenuItem{}, err
	}
	if err := validatePrice(in.Price); err != nil {
		return model.MenuItem{}, err
	}
	if err := u.checkCategory(ctx, in.CategoryID); err != nil {
		return model.MenuItem{}, err
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}

	return model.MenuItem{
		CategoryID:  in.CategoryID,
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
		Available:   available,
	}, nil
}

// 注文で使われたメニューは消せない
func (u *CatalogUsecase) DeleteMenuItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.menuItems.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 提供中のメニュー入りで返す
func (u *CatalogUsecase) ListCategories(ctx context.Context) ([]CategoryOutput, error) {
	cs, err := u.categories.ListWithAvailableItems(ctx)
	if err != nil {
		return []CategoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]CategoryOutput, 0, len(cs))
	for _, c := range cs {
		outs = append(outs, toCategoryOutput(c))
	}
	return outs, nil
}

func (u *CatalogUsecase) CreateCategory(ctx context.Context, in CategoryInput) (CategoryOutput, error) {
	name, err := validateName(in.Name, maxCategoryNameLen)
	if err != nil {
		return CategoryOutput{}, err
	}

	c, err := u.categories.Create(ctx, model.Category{Name: name, Description: in.Description})
	if err != nil {
		return CategoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toCategoryOutput(c), nil
}

func (u *CatalogUsecase) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (CategoryOutput, error) {
	if id <= 0 {
		return CategoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	name, err := validateName(in.Name, maxCategoryNameLen)
	if err != nil {
		return CategoryOutput{}, err
	}

	c := model.Category{ID: id, Name: name, Description: in.Description}
	err = u.categories.Update(ctx, c)
	if errors.Is(err, repo.ErrNotFound) {
		return CategoryOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return CategoryOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toCategoryOutput(c), nil
}

// メニューも一緒に消える
func (u *CatalogUsecase) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.categories.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
