package validator

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chefchain/internal/usecase"

	"github.com/go-playground/validator/v10"
)

// echo.Validatorとして登録する
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	// エラーメッセージはjsonのフィールド名で出す
	v.RegisterTagNameFunc(jsonFieldName)
	return &RequestValidator{validate: v}
}

// 失敗時は400のHTTPErrorを返す
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}

	// 最初の1件だけ返す
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
