package main

import (
	"context"
	"io"
	"log"

	"chefchain/internal/config"
	"chefchain/internal/event"
	"chefchain/internal/handler"
	"chefchain/internal/infra/db"
	infraRepo "chefchain/internal/infra/repository"
	"chefchain/internal/logger"
	"chefchain/internal/payment"
	"chefchain/internal/server"
	"chefchain/internal/usecase"
	"chefchain/internal/validator"
)

func main() {
	cfg, err := config.LoadWithDotenv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.GoEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	//DB接続
	gormDB, err := db.Connect(cfg, lg)
	if err != nil {
		lg.Fatalw("database connection failed", "error", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		lg.Fatalw("database migration failed", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		lg.Fatalw("database handle", "error", err)
	}
	closers := []io.Closer{sqlDB}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	menuItemRepo := infraRepo.NewMenuItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	paymentRepo := infraRepo.NewPaymentGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//RABBITMQ_URLが無ければイベントは送らない
	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		p, err := event.NewRabbitMQPublisher(cfg.RabbitMQURL, lg)
		if err != nil {
			lg.Fatalw("rabbitmq connection failed", "error", err)
		}
		publisher = p
		closers = append([]io.Closer{p}, closers...)
	} else {
		lg.Warn("RABBITMQ_URL not set, order events are disabled")
	}

	paystack := payment.NewClient(payment.Config{
		SecretKey: cfg.PaystackSecretKey,
		BaseURL:   cfg.PaystackBaseURL,
		Timeout:   cfg.PaystackTimeout,
	})

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, auditRepo, validator.NewAuthValidator(userRepo), lg)
	orderUC := usecase.NewOrderUsecase(txManager, orderRepo, publisher, lg)
	catalogUC := usecase.NewCatalogUsecase(menuItemRepo, categoryRepo)
	paymentUC := usecase.NewPaymentUsecase(orderRepo, paymentRepo, userRepo, paystack, lg)
	auditUC := usecase.NewAuditLogUsecase(auditRepo)

	if err := authUC.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		lg.Fatalw("bootstrap admin failed", "error", err)
	}

	e := server.New(lg)
	server.RegisterRoutes(e, cfg, userRepo,
		handler.NewAuthHandler(authUC),
		handler.NewCatalogHandler(catalogUC),
		handler.NewCartHandler(orderUC),
		handler.NewOrderHandler(orderUC),
		handler.NewPaymentHandler(paymentUC),
		handler.NewAdminHandler(authUC, auditUC),
	)

	if err := server.Run(e, cfg, lg, closers...); err != nil {
		lg.Fatalw("server error", "error", err)
	}
}
