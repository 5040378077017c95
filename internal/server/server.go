package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chefchain/internal/config"
	"chefchain/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// echoの共通設定（ルートはroutes.go）
func New(logger *zap.SugaredLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.NewRequestValidator()

	// /menu/ と /menu を同じに扱う
	e.Pre(echomw.RemoveTrailingSlash())

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	return e
}

func requestLogger(logger *zap.SugaredLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Errorw("request failed", append(fields, "error", v.Error)...)
				return nil
			}
			logger.Infow("request", fields...)
			return nil
		},
	})
}

// SIGINT/SIGTERMで止める。closersはサーバー停止後に閉じる
func Run(e *echo.Echo, cfg config.Config, logger *zap.SugaredLogger, closers ...io.Closer) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Infow("signal caught", "signal", s.String())

		err := srv.Shutdown(ctx)
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil {
				logger.Errorw("error closing resource", "error", cerr)
			}
		}
		shutdown <- err
	}()

	logger.Infow("server has started", "addr", srv.Addr, "env", cfg.GoEnv)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	logger.Infow("server has stopped", "addr", srv.Addr)
	return nil
}
