package server

import (
	"chefchain/internal/config"
	"chefchain/internal/handler"
	"chefchain/internal/repository"

	"github.com/labstack/echo/v4"
)

// 各handlerが自分のルートを登録する
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository)
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, handlers ...RouteRegistrar) {
	e.GET("/health", handler.Health)

	for _, h := range handlers {
		h.RegisterRoutes(e, cfg, userRepo)
	}
}
