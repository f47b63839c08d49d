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

	"github.com/romix/stock-api/internal/catalog"
	"github.com/romix/stock-api/internal/config"
	"github.com/romix/stock-api/internal/httpx"
	kafkax "github.com/romix/stock-api/internal/kafka"
	"github.com/romix/stock-api/internal/orders"
	"github.com/romix/stock-api/internal/postgres"
	"github.com/romix/stock-api/internal/redisx"
	"github.com/romix/stock-api/internal/stock"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	orderEvents := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	orderEvents.Start(ctx)
	stockEvents := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockEvents, 1024)
	stockEvents.Start(ctx)

	// Repos & handler
	cat := &catalog.Repo{DB: db}
	ord := &orders.Repo{DB: db}
	views := &stock.Views{DB: db}

	if cfg.SeedDemo {
		if err := seedDemo(ctx, cat); err != nil {
			log.Printf("seed: %v", err)
		}
	}

	router := httpx.NewRouter()
	h := &httpx.Handler{
		Catalog:     cat,
		Orders:      ord,
		Views:       views,
		OrderEvents: orderEvents,
		StockEvents: stockEvents,
		Redis:       rdb,
		Service:     cfg.ServiceName,
	}
	h.Register(router)

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
	orderEvents.Close()
	stockEvents.Close()
	cancel()
	orderEvents.WaitClosed()
	stockEvents.WaitClosed()
}

// seedDemo loads a handful of sample variants into an empty catalog so the
// storefront has something to show during demos.
func seedDemo(ctx context.Context, cat *catalog.Repo) error {
	has, err := cat.HasVariants(ctx)
	if err != nil || has {
		return err
	}
	samples := []struct {
		name, color, size string
		qty               int
	}{
		{"Calza lycra chupin", "Negro", "1", 5},
		{"Calza lycra chupin", "Negro", "2", 5},
		{"Calza lycra chupin", "Gris", "1", 2},
		{"Camiseta Térmica Frisado", "Negro", "M", 3},
		{"Campera Polar Corderito Largo", "Gris", "M", 1},
	}
	for _, s := range samples {
		if err := cat.Restock(ctx, s.name, s.color, s.size, s.qty, ""); err != nil {
			return err
		}
	}
	log.Printf("seeded %d demo variants", len(samples))
	return nil
}
