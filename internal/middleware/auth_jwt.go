package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"chefchain/internal/config"
	"chefchain/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // model.Role
	CtxTokenVersionKey = "token_version" // int
)

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return unauthorized(c)
			}

			//JWTをパースして検証する
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || token == nil || !token.Valid {
				return unauthorized(c)
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c)
			}

			userID, err := parseUserID(claims["sub"])
			if err != nil || userID <= 0 {
				return unauthorized(c)
			}

			//roleを取り出す（admin/rider/chef/customer）
			rawRole, _ := claims["role"].(string)
			role := model.Role(rawRole)
			if !role.Valid() {
				return unauthorized(c)
			}

			tv, err := parseInt(claims["tv"])
			if err != nil || tv < 0 {
				return unauthorized(c)
			}

			c.Set(CtxUserIDKey, userID)
			c.Set(CtxUserRoleKey, role)
			c.Set(CtxTokenVersionKey, tv)

			return next(c)
		}
	}
}

// "Bearer xxx" からtokenを抜く
func bearerToken(authz string) (string, bool) {
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		i64, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(i64), nil
	default:
		return 0, errors.New("invalid int")
	}
}
