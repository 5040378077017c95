package middleware

import (
	"net/http"

	"chefchain/internal/repository"

	"github.com/labstack/echo/v4"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
// ロール変更後は古いトークン（古いrole入り）を弾く
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return unauthorized(c)
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return unauthorized(c)
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return unauthorized(c)
			}

			//停止ユーザーも弾く
			if !user.IsActive {
				return c.JSON(http.StatusForbidden, errorResponse{Error: "user is inactive"})
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv {
				return unauthorized(c)
			}

			return next(c)
		}
	}
}
