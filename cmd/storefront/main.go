package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kynaruniverse/storefront/internal/catalog"
	"github.com/kynaruniverse/storefront/internal/checkout"
	"github.com/kynaruniverse/storefront/internal/httpapi"
	"github.com/kynaruniverse/storefront/internal/orders"
	"github.com/kynaruniverse/storefront/internal/pricing"
	"github.com/kynaruniverse/storefront/internal/provider"
	"github.com/kynaruniverse/storefront/internal/remote"
	"github.com/kynaruniverse/storefront/internal/selection"
	"github.com/kynaruniverse/storefront/internal/storage"
	"github.com/kynaruniverse/storefront/internal/webhook"
)

type Config struct {
	HTTPPort string

	RedisAddr     string
	RedisPassword string

	MongoURI    string
	MongoDBName string

	CatalogDBPath     string
	CatalogMigrations string

	CheckoutDB checkout.Credentials
	OrdersDB   orders.Credentials

	KafkaBrokers []string

	StoreHost      string
	WebhookSecret  string
	ProviderAPIURL string
	ProviderAPIKey string
	AdminToken     string

	PriceDebug bool

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDBName:   getEnv("MONGO_DB_NAME", "kynardb"),

		CatalogDBPath:     getEnv("CATALOG_DB_PATH", "kynar.db"),
		CatalogMigrations: getEnv("CATALOG_MIGRATIONS_PATH", "internal/catalog/migrations"),

		CheckoutDB: checkout.Credentials{
			Host:              getEnv("CHECKOUT_DB_HOST", "localhost"),
			Port:              getEnvInt("CHECKOUT_DB_PORT", 5432),
			User:              getEnv("CHECKOUT_DB_USER", "postgres"),
			Password:          getEnv("CHECKOUT_DB_PASSWORD", "postgres"),
			DBName:            getEnv("CHECKOUT_DB_NAME", "checkoutdb"),
			MigrationsDirPath: getEnv("CHECKOUT_MIGRATIONS_PATH", "internal/checkout/migrations"),
		},
		OrdersDB: orders.Credentials{
			Host:              getEnv("ORDERS_DB_HOST", "localhost"),
			Port:              getEnvInt("ORDERS_DB_PORT", 5432),
			User:              getEnv("ORDERS_DB_USER", "postgres"),
			Password:          getEnv("ORDERS_DB_PASSWORD", "postgres"),
			DBName:            getEnv("ORDERS_DB_NAME", "ordersdb"),
			MigrationsDirPath: getEnv("ORDERS_MIGRATIONS_PATH", "internal/orders/migrations"),
		},

		KafkaBrokers: []string{getEnv("KAFKA_BROKER", "localhost:9092")},

		StoreHost:      getEnv("STORE_HOST", checkout.DefaultStoreHost),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		ProviderAPIURL: getEnv("PROVIDER_API_URL", "https://api.lemonsqueezy.com"),
		ProviderAPIKey: getEnv("PROVIDER_API_KEY", ""),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),

		PriceDebug: getEnv("PRICE_DEBUG", "") != "",

		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
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

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// Redis backs durable selections and the catalog listing cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	resolver := pricing.NewResolver(pricing.DefaultRegistry(), cfg.PriceDebug)

	// Remote selection sync is optional; without Mongo the storefront still
	// works, selections just stay per-browser
	var syncer selection.Syncer
	var mongoSyncer *remote.MongoSyncer
	if cfg.MongoURI != "" {
		mongoDB, err := remote.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoDB.Client().Disconnect(ctx)

		mongoSyncer = remote.NewMongoSyncer(mongoDB)
		if err := mongoSyncer.CreateIndexes(ctx); err != nil {
			log.Printf("failed to create selection indexes: %v", err)
		}
		syncer = mongoSyncer
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
	} else {
		log.Printf("MONGO_URI not set, remote selection sync disabled")
	}

	manager := selection.NewManager(storage.NewRedisStorage(redisClient), resolver, syncer)
	defer manager.Close()

	// Catalog
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.CatalogMigrations); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}
	catalogService := catalog.NewService(catalogRepo, catalog.NewRedisListingCache(redisClient))

	// Checkout
	checkoutRepo, err := checkout.NewRepository(&cfg.CheckoutDB)
	if err != nil {
		log.Fatalf("Failed to connect to checkout database: %v", err)
	}
	defer checkoutRepo.Close()
	if err := checkoutRepo.RunMigrations(&cfg.CheckoutDB); err != nil {
		log.Fatalf("Failed to run checkout migrations: %v", err)
	}
	checkoutService := checkout.NewService(checkoutRepo, resolver, checkout.NewURLBuilder(cfg.StoreHost))

	// Orders
	ordersRepo, err := orders.NewRepository(&cfg.OrdersDB)
	if err != nil {
		log.Fatalf("Failed to connect to orders database: %v", err)
	}
	defer ordersRepo.Close()
	if err := ordersRepo.RunMigrations(&cfg.OrdersDB); err != nil {
		log.Fatalf("Failed to run orders migrations: %v", err)
	}

	pollerCtx, stopPoller := context.WithCancel(ctx)
	poller := orders.NewOutboxPoller(ordersRepo, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)
	defer func() {
		stopPoller()
		poller.Close()
	}()

	var verifier webhook.OrderVerifier
	if cfg.ProviderAPIKey != "" {
		verifier = provider.NewClient(cfg.ProviderAPIURL, cfg.ProviderAPIKey)
	}
	webhookHandler := webhook.NewHandler(cfg.WebhookSecret, ordersRepo, verifier)

	selectionHandler := httpapi.NewSelectionHandler(manager, catalogService, resolver, cfg.RequestTimeout)
	catalogHandler := httpapi.NewCatalogHandler(catalogService, resolver, cfg.RequestTimeout)
	checkoutHandler := httpapi.NewCheckoutHandler(checkoutService, manager, cfg.RequestTimeout)
	ordersHandler := httpapi.NewOrdersHandler(ordersRepo, cfg.RequestTimeout)
	adminHandler := httpapi.NewAdminHandler(catalogService, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(httpapi.SessionMiddleware)
	r.Use(httpapi.AuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/{slug}", catalogHandler.GetProduct)
		})

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", selectionHandler.GetSelection)
			r.Delete("/", selectionHandler.ClearSelection)
			r.Post("/items", selectionHandler.AddItem)
			r.Put("/items/{product_id}", selectionHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", selectionHandler.RemoveItem)
			r.Get("/toast", selectionHandler.GetToast)
			r.Delete("/toast", selectionHandler.DismissToast)
			r.Post("/signin", selectionHandler.SignIn)
			r.Post("/signout", selectionHandler.SignOut)
		})

		r.Post("/checkout", checkoutHandler.InitiateCheckout)
		r.Get("/library", ordersHandler.ListLibrary)
	})

	r.Post("/webhooks/provider", webhookHandler.ServeHTTP)

	r.Route("/admin/products", func(r chi.Router) {
		r.Use(httpapi.AdminMiddleware(cfg.AdminToken))
		r.Get("/", adminHandler.ListProducts)
		r.Post("/", adminHandler.CreateProduct)
		r.Get("/{id}", adminHandler.GetProduct)
		r.Put("/{id}", adminHandler.UpdateProduct)
		r.Delete("/{id}", adminHandler.DeleteProduct)
		r.Patch("/{id}/published", adminHandler.SetPublished)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
