package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"loanledger-backend/internal/adapter/gateway/cashfree"
	"loanledger-backend/internal/adapter/repository/mysql"
	"loanledger-backend/internal/config"
	"loanledger-backend/internal/infrastructure/db"
	paymentUC "loanledger-backend/internal/usecase/payment"
)

// The sweeper is the safety net for lost webhooks: it periodically polls
// the gateway for intents that stayed pending past the sweep window and
// feeds the outcomes through the same reconciliation path.
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

	loans := mysql.NewLoanRepository(gdb)
	intents := mysql.NewIntentRepository(gdb)
	unit := mysql.NewGormUoW(gdb)
	gw := cashfree.NewClient(cfg.GatewayBaseURL, cfg.GatewayAppID, cfg.GatewaySecret, cfg.GatewayWebhookSecret, cfg.GatewayTimeout)

	payments := paymentUC.NewUsecase(loans, intents, unit, gw)

	c := cron.New()
	_, err = c.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		applied, err := payments.SweepPending(ctx, cfg.SweepAfter, cfg.SweepBatch)
		if err != nil {
			log.Printf("sweep: %v", err)
			return
		}
		if applied > 0 {
			log.Printf("sweep: reconciled %d stale payment(s)", applied)
		}
	})
	if err != nil {
		log.Fatalf("schedule: %v", err)
	}

	c.Start()
	log.Println("sweeper started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("sweeper stopping")
	<-c.Stop().Done()
}
