package main

import (
	"log"
	"os"
	"strconv"

	"tab-service/internal/crypto"
	"tab-service/internal/database"
	"tab-service/internal/handlers"
	"tab-service/internal/middleware"
	"tab-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	// Initialize Database
	database.Connect()
	database.Migrate()
	db := database.DB

	// Master key for credential encryption. Tenant secrets themselves live
	// in the database, never in the environment.
	cipher, err := crypto.NewCipherFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize credential cipher: %v", err)
	}

	// Redis/Asynq Client for settlement side effects
	redisAddr := os.Getenv("REDIS_URL")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer asynqClient.Close()

	// Init Services
	tabService := services.NewTabService(db)
	credentialService := services.NewCredentialService(db, cipher)
	mpesaClient := services.NewMpesaClient()
	paymentService := services.NewPaymentService(db, credentialService, mpesaClient, tabService)
	callbackService := services.NewCallbackService(db, asynqClient)
	syncService := services.NewSyncService(db)
	settingsService := services.NewSettingsService(db, cipher, credentialService, syncService, mpesaClient)

	// Handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService, callbackService)
	settingsHandler := handlers.NewSettingsHandler(settingsService, syncService)

	// Initialize Gin
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Tab payment service up",
		})
	})

	rpm := 30
	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			rpm = parsed
		}
	}
	limited := middleware.RateLimit(rpm)

	// Payment routes
	r.POST("/payments/mpesa/initiate", limited, paymentHandler.Initiate)
	r.POST("/payments/mpesa/callback", paymentHandler.Callback)
	r.GET("/payments", paymentHandler.List)
	r.POST("/payments/reconcile/:id", paymentHandler.Reconcile)

	// Bar settings routes
	r.PUT("/bars/:id/mpesa/credentials", settingsHandler.UpsertCredentials)
	r.POST("/bars/:id/mpesa/credentials/test", limited, settingsHandler.TestCredentials)
	r.PUT("/bars/:id/mpesa/enabled", settingsHandler.SetEnabled)
	r.GET("/bars/:id/mpesa/status", settingsHandler.Status)
	r.POST("/bars/:id/mpesa/repair", settingsHandler.Repair)

	// Start Cron Schedulers
	paymentService.StartScheduler()
	syncService.StartScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("HTTP Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
