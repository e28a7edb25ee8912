package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/emioop/vallyfab-api/internal/config"
	"github.com/emioop/vallyfab-api/internal/fulfillment"
	kafkax "github.com/emioop/vallyfab-api/internal/kafka"
	"github.com/emioop/vallyfab-api/internal/orders"
	"github.com/emioop/vallyfab-api/internal/postgres"
	"github.com/emioop/vallyfab-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pShipped := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderShipped, 1024)
	pShipped.Start(ctx)

	svc := &fulfillment.Service{
		Orders:      &orders.Repo{DB: db},
		Dedup:       fulfillment.RedisDeduper{Client: rdb},
		Producer:    pShipped,
		ServiceName: cfg.ServiceName + "-fulfillment",
	}

	group := getenv("FULFILLMENT_GROUP", "fulfillment-svc")
	workers := mustAtoi(os.Getenv("FULFILLMENT_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicPaymentCaptured, workers)

	go func() {
		log.Printf("fulfillment consumer started: group=%s topic=%s workers=%d",
			group, orders.TopicPaymentCaptured, workers)
		if err := cons.Start(ctx, svc.HandlePaymentCaptured); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pShipped.Close()
	pShipped.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
