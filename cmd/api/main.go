package main

import (
	"log"
	"os"

	_ "travel-expense-api/api/swagger" // swagger docs
	"travel-expense-api/internal/database"
	"travel-expense-api/internal/handler"
	"travel-expense-api/internal/middleware"
	"travel-expense-api/internal/notification"
	"travel-expense-api/internal/repository"
	"travel-expense-api/internal/sap"
	"travel-expense-api/internal/service"
	"travel-expense-api/internal/storage"
	"travel-expense-api/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Travel Expense API
// @version         1.0
// @description     Travel prepayment and expense report approval workflow.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	logger, err := zap.NewProduction()
	if os.Getenv("GIN_MODE") != "release" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Logger initialization failed: %v", err)
	}
	defer logger.Sync()

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

	db, err := database.NewConnection(dsn)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	logger.Info("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	// Outbound side effects
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	fileStorage := storage.NewLocalFileStorage(dataDir, logger)
	sapGenerator := sap.NewGenerator(dataDir+"/sap", logger)
	notifier := notification.NewNotifier(wsHub, notification.NewMailerFromEnv(), logger)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	prepaymentRepo := repository.NewPrepaymentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	userService := service.NewUserService(userRepo)
	prepaymentService := service.NewPrepaymentService(prepaymentRepo, reportRepo, userRepo, historyRepo, txManager, notifier)
	reportService := service.NewReportService(reportRepo, prepaymentRepo, expenseRepo, userRepo, historyRepo, txManager, notifier, sapGenerator)
	expenseService := service.NewExpenseService(expenseRepo, reportRepo, prepaymentRepo, userRepo, historyRepo, txManager, notifier, sapGenerator)
	masterDataService := service.NewMasterDataService(db)
	historyService := service.NewHistoryService(historyRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	prepaymentHandler := handler.NewPrepaymentHandler(prepaymentService)
	reportHandler := handler.NewReportHandler(reportService)
	expenseHandler := handler.NewExpenseHandler(expenseService, fileStorage)
	masterDataHandler := handler.NewMasterDataHandler(masterDataService)
	historyHandler := handler.NewHistoryHandler(historyService)

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
	prepaymentHandler.RegisterRoutes(router.Group(""))
	reportHandler.RegisterRoutes(router.Group(""))
	expenseHandler.RegisterRoutes(router.Group(""))
	masterDataHandler.RegisterRoutes(router.Group(""))
	historyHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info("server listening", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
