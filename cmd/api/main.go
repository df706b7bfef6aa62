package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"loanledger-backend/internal/adapter/gateway/cashfree"
	httpadp "loanledger-backend/internal/adapter/http"
	"loanledger-backend/internal/adapter/middleware"
	"loanledger-backend/internal/adapter/repository/mysql"
	"loanledger-backend/internal/config"
	"loanledger-backend/internal/infrastructure/cache"
	"loanledger-backend/internal/infrastructure/db"
	ledgerUC "loanledger-backend/internal/usecase/ledger"
	loanUC "loanledger-backend/internal/usecase/loan"
	paymentUC "loanledger-backend/internal/usecase/payment"
	refundUC "loanledger-backend/internal/usecase/refund"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	loans := mysql.NewLoanRepository(gdb)
	txns := mysql.NewTransactionRepository(gdb)
	intents := mysql.NewIntentRepository(gdb)
	unit := mysql.NewGormUoW(gdb)

	gw := cashfree.NewClient(cfg.GatewayBaseURL, cfg.GatewayAppID, cfg.GatewaySecret, cfg.GatewayWebhookSecret, cfg.GatewayTimeout)

	loanUsecase := loanUC.NewUsecase(loans, unit)
	ledgerUsecase := ledgerUC.NewUsecase(txns, unit)
	paymentUsecase := paymentUC.NewUsecase(loans, intents, unit, gw)
	refundUsecase := refundUC.NewUsecase(txns, unit, gw)

	h := httpadp.NewHandler()
	loanHandler := httpadp.NewLoanHandler(loanUsecase)
	txnHandler := httpadp.NewTransactionHandler(ledgerUsecase, refundUsecase)
	paymentHandler := httpadp.NewPaymentHandler(paymentUsecase, gw)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())

	e.GET("/health", h.Health)

	// webhook idempotency lives in the payment intent, not in the
	// request-replay middleware, so this route stays outside both groups
	e.POST("/payments/webhook", paymentHandler.Webhook)

	idemTTL := time.Duration(cfg.IdempTTLSecs) * time.Second
	api := e.Group("", middleware.ActorContext(), middleware.Idempotency(rdb, idemTTL))

	api.POST("/loans", loanHandler.Create)
	api.GET("/loans/:loan_id", loanHandler.Get)
	api.PUT("/loans/:loan_id", loanHandler.Update)
	api.PATCH("/loans/:loan_id/status", loanHandler.UpdateStatus)
	api.DELETE("/loans/:loan_id", loanHandler.Delete)
	api.GET("/loans/:loan_id/amortization", loanHandler.Amortization)

	api.POST("/transactions", txnHandler.Post)
	api.GET("/transactions/:transaction_id", txnHandler.Get)
	api.PUT("/transactions/:transaction_id", txnHandler.UpdateMeta)
	api.DELETE("/transactions/:transaction_id", txnHandler.Reverse)
	api.POST("/transactions/:transaction_id/refund", txnHandler.Refund)

	api.POST("/payments/orders", paymentHandler.CreateOrder)
	api.POST("/payments/verify", paymentHandler.Verify)
	api.GET("/payments/:order_id", paymentHandler.GetIntent)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
