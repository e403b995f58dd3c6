package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/kynaruniverse/storefront/internal/checkout"
	"github.com/kynaruniverse/storefront/internal/fulfillment"
	"github.com/kynaruniverse/storefront/internal/pricing"
	"github.com/kynaruniverse/storefront/internal/remote"
)

func main() {
	kafkaBroker := getEnv("KAFKA_BROKER", "localhost:9092")
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDBName := getEnv("MONGO_DB_NAME", "kynardb")

	ctx := context.Background()

	mongoDB, err := remote.ConnectMongoDB(ctx, mongoURI, mongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(ctx)
	syncer := remote.NewMongoSyncer(mongoDB)
	log.Printf("Connected to MongoDB at %s", mongoURI)

	checkoutDB := checkout.Credentials{
		Host:     getEnv("CHECKOUT_DB_HOST", "localhost"),
		Port:     getEnvInt("CHECKOUT_DB_PORT", 5432),
		User:     getEnv("CHECKOUT_DB_USER", "postgres"),
		Password: getEnv("CHECKOUT_DB_PASSWORD", "postgres"),
		DBName:   getEnv("CHECKOUT_DB_NAME", "checkoutdb"),
	}
	checkoutRepo, err := checkout.NewRepository(&checkoutDB)
	if err != nil {
		log.Fatalf("Failed to connect to checkout database: %v", err)
	}
	defer checkoutRepo.Close()

	resolver := pricing.NewResolver(pricing.DefaultRegistry(), false)
	storeHost := getEnv("STORE_HOST", checkout.DefaultStoreHost)
	checkoutService := checkout.NewService(checkoutRepo, resolver, checkout.NewURLBuilder(storeHost))

	consumer := fulfillment.NewConsumer(syncer, checkoutService, kafkaBroker)
	defer consumer.Close()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		log.Printf("Fulfillment worker consuming from %s", kafkaBroker)
		consumer.Run(runCtx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down fulfillment worker...")
	cancel()
	<-done
	log.Println("fulfillment worker stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
