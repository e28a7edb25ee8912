package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/emioop/vallyfab-api/internal/auth"
	"github.com/emioop/vallyfab-api/internal/cart"
	"github.com/emioop/vallyfab-api/internal/catalog"
	"github.com/emioop/vallyfab-api/internal/checkout"
	"github.com/emioop/vallyfab-api/internal/config"
	"github.com/emioop/vallyfab-api/internal/httpx"
	kafkax "github.com/emioop/vallyfab-api/internal/kafka"
	"github.com/emioop/vallyfab-api/internal/orders"
	"github.com/emioop/vallyfab-api/internal/postgres"
	"github.com/emioop/vallyfab-api/internal/razorpay"
	"github.com/emioop/vallyfab-api/internal/redisx"
	"github.com/emioop/vallyfab-api/internal/settlement"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pCaptured := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentCaptured, 1024)
	pCaptured.Start(ctx)
	pFailed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024)
	pFailed.Start(ctx)

	// Repos & services
	catalogRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db}
	userRepo := &auth.UserRepo{DB: db}
	sessions := &auth.Sessions{Redis: rdb}

	gateway := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	checkoutSvc := &checkout.Service{
		Products: catalogRepo,
		Orders:   orderRepo,
		Gateway:  gateway,
		Producer: pCreated,
		Service:  cfg.ServiceName,
	}
	settlementSvc := &settlement.Service{
		Secret:           cfg.WebhookSecret,
		Orders:           orderRepo,
		Stock:            catalogRepo,
		ProducerCaptured: pCaptured,
		ProducerFailed:   pFailed,
		Service:          cfg.ServiceName,
	}

	// Router
	router := httpx.NewRouter(httpx.Authenticate(sessions))
	(&httpx.AuthHandler{Users: userRepo, Sessions: sessions}).Register(router)
	(&httpx.CatalogHandler{Repo: catalogRepo}).Register(router)
	(&httpx.CartHandler{Repo: cartRepo}).Register(router)
	(&httpx.CheckoutHandler{Service: checkoutSvc}).Register(router)
	(&httpx.WebhookHandler{Service: settlementSvc}).Register(router)
	(&httpx.OrdersHandler{Repo: orderRepo, Redis: rdb}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pCreated, pCaptured, pFailed} {
		p.Close()
	}
	cancel()
	for _, p := range []*kafkax.Producer{pCreated, pCaptured, pFailed} {
		p.WaitClosed()
	}
}
