package main

import (
	"os"
	"strconv"
	"time"

	_ "invoicing-backend/api/swagger" // swagger docs
	"invoicing-backend/internal/currency"
	"invoicing-backend/internal/database"
	"invoicing-backend/internal/handler"
	"invoicing-backend/internal/middleware"
	"invoicing-backend/internal/pdf"
	"invoicing-backend/internal/rates"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/service"
	"invoicing-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Invoicing API
// @version         1.0
// @description     Multi-company invoicing backend: invoices, proformas, tax and currency handling, document storage.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load("configs/.env"); err != nil {
		log.Info("no configs/.env file found, using environment")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	log.Info("connected to postgres")

	// Optional redis for sharing rate snapshots between instances
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		log.WithField("addr", addr).Info("redis rate cache enabled")
	}

	// Exchange rate provider
	ratesCfg := rates.Config{
		PrimaryURL:  os.Getenv("EXCHANGE_RATE_API_URL"),
		FallbackURL: os.Getenv("FALLBACK_API_URL"),
		Redis:       redisClient,
		Logger:      log,
	}
	if useStatic, _ := strconv.ParseBool(os.Getenv("USE_STATIC_RATES")); useStatic {
		ratesCfg.Static = true
	}
	if raw := os.Getenv("RATES_TTL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			ratesCfg.TTL = time.Duration(minutes) * time.Minute
		}
	}
	ratesProvider := rates.New(ratesCfg)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	taxEngine := currency.NewEngine(log)
	renderer := pdf.NewRenderer()

	userService := service.NewUserService(userRepo)
	clientService := service.NewClientService(clientRepo, auditRepo, log)
	numberingService := service.NewNumberingService(counterRepo, txManager, log)
	documentService := service.NewDocumentService(documentRepo, log)
	invoiceService := service.NewInvoiceService(invoiceRepo, clientRepo, auditRepo, taxEngine, ratesProvider, numberingService, documentService, renderer, wsHub, log)
	exportService := service.NewExportService(invoiceRepo, documentService, auditRepo, wsHub, log)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	clientHandler := handler.NewClientHandler(clientService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	numberingHandler := handler.NewNumberingHandler(numberingService)
	ratesHandler := handler.NewRatesHandler(ratesProvider)
	exportHandler := handler.NewExportHandler(exportService)
	auditHandler := handler.NewAuditHandler(auditRepo)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	clientHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))
	numberingHandler.RegisterRoutes(router.Group(""))
	ratesHandler.RegisterRoutes(router.Group(""))
	exportHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.WithField("port", port).Info("server listening")
	if err := router.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
