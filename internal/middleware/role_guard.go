package middleware

import (
	"net/http"

	"chefchain/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// contextのroleがallowを満たすか確認する。AuthJWTの後ろで使う
func RoleGuard(allow func(model.Role) bool, deniedMsg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(model.Role)
			if !ok || role == "" {
				return unauthorized(c)
			}
			if !allow(role) {
				return c.JSON(http.StatusForbidden, errorResponse{Error: deniedMsg})
			}
			return next(c)
		}
	}
}

// /admin 配下（ユーザー管理・監査ログ）
func AdminRoleGuard() echo.MiddlewareFunc {
	return RoleGuard(model.Role.CanManageUsers, "admin only")
}

// メニュー・カテゴリの更新
func CatalogRoleGuard() echo.MiddlewareFunc {
	return RoleGuard(model.Role.CanManageCatalog, "admin only")
}

// 注文キャンセル
func CancelRoleGuard() echo.MiddlewareFunc {
	return RoleGuard(model.Role.CanCancelOrders, "admin only")
}

// admin/chef/rider
func StaffRoleGuard() echo.MiddlewareFunc {
	return RoleGuard(model.Role.CanAdvanceOrders, "staff only")
}
