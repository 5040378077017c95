package validator

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"chefchain/internal/repository"
	"chefchain/internal/usecase"

	"github.com/go-playground/validator/v10"
)

type authValidator struct {
	users    repository.UserRepository
	validate *validator.Validate
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return &authValidator{users: users, validate: v}
}

// 登録の入力を検証（username重複もここで弾く）
func (v *authValidator) ValidateRegister(ctx context.Context, in usecase.RegisterInput) error {
	if err := v.validate.Struct(in); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, describe(err))
	}

	_, err := v.users.FindByUsername(ctx, in.Username)
	if err == nil {
		return usecase.NewHTTPError(http.StatusConflict, "username already taken")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return usecase.NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, in usecase.LoginInput) error {
	if err := v.validate.Struct(in); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, describe(err))
	}
	return nil
}

// refresh 入力を検証
func (v *authValidator) ValidateRefresh(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "refresh required")
	}
	return nil
}

// jsonタグ名。タグが無ければフィールド名
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
