package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/propfolio/backend/docs"
	"github.com/propfolio/backend/internal/buildium"
	"github.com/propfolio/backend/internal/database"
	"github.com/propfolio/backend/internal/handlers"
	mW "github.com/propfolio/backend/internal/middleware"
	"github.com/propfolio/backend/internal/services"
)

// @title Propfolio Reconciliation API
// @version 1.0
// @description Webhook-driven reconciliation of Buildium bank deposits into the local ledger
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.ReadInConfig()

	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("buildium.base_url", "BUILDIUM_BASE_URL")
	viper.BindEnv("buildium.client_id", "BUILDIUM_CLIENT_ID")
	viper.BindEnv("buildium.client_secret", "BUILDIUM_CLIENT_SECRET")
	viper.BindEnv("buildium.webhook_secret", "BUILDIUM_WEBHOOK_SECRET")
	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	docs.SwaggerInfo.Title = "Propfolio Reconciliation API"
	docs.SwaggerInfo.Description = "Webhook-driven reconciliation of Buildium bank deposits into the local ledger"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	buildiumClient := buildium.NewClient(buildium.Config{
		BaseURL:      viper.GetString("buildium.base_url"),
		ClientID:     viper.GetString("buildium.client_id"),
		ClientSecret: viper.GetString("buildium.client_secret"),
	})

	webhookSecret := viper.GetString("buildium.webhook_secret")
	if webhookSecret == "" {
		log.Println("WARNING: buildium.webhook_secret is empty; all webhook deliveries will be rejected")
	}

	resolver := services.NewResolverService(db)
	receiptService := services.NewReceiptService(db)
	ingestionService := services.NewIngestionService(
		receiptService,
		resolver,
		services.NewGlAccountService(db, resolver),
		services.NewSplitService(db, resolver, buildiumClient),
		services.NewPostingService(db),
		services.NewLockService(redisClient),
		buildiumClient,
	)

	webhookHandler := handlers.NewWebhookHandler(services.NewSignatureService(webhookSecret), ingestionService)
	transactionHandler := handlers.NewTransactionHandler(services.NewTransactionQueryService(db), receiptService)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// The webhook authenticates with its HMAC signature, not a JWT.
		r.Post("/webhooks/buildium", webhookHandler.HandleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/transactions/{txId}", transactionHandler.GetTransaction)
			r.Get("/webhook-events", transactionHandler.ListWebhookEvents)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
