package main

import (
	"context"
	"go-order-api/src/config"
	"go-order-api/src/controllers"
	"go-order-api/src/infrastructure"
	"go-order-api/src/infrastructure/log"
	"go-order-api/src/infrastructure/mongo"
	"go-order-api/src/infrastructure/rabbitmq"
	"go-order-api/src/services/auth"
	"go-order-api/src/services/catalog"
	"go-order-api/src/services/events"
	"go-order-api/src/services/notification"
	notificationHandlers "go-order-api/src/services/notification/handlers"
	"go-order-api/src/services/order/domain"
	"go-order-api/src/services/order/domain/persistence"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go-order-api/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/swaggo/fiber-swagger"
)

// @title        Order API
// @version      1.0
// @description  Order management service with JWT auth and optional TOTP 2FA
// @host         localhost:8080
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := log.NewLogger()

	configs, err := config.LoadConfig()
	if err != nil {
		logger.Fatal(ctx, "Failed to load configuration", err)
	}
	logger.Info(ctx, "Configuration loaded successfully")

	client, err := mongo.GetMongoClient(configs)
	if err != nil {
		logger.Fatal(ctx, "Failed to connect to MongoDB", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal(ctx, "MongoDB ping failed", err)
	}
	logger.Info(ctx, "MongoDB connection successful")

	if err := mongo.EnsureIndexes(ctx, configs, client); err != nil {
		logger.Fatal(ctx, "Failed to create indexes", err)
	}

	// Repositories
	orderRepository := persistence.NewOrderRepository(configs, client)
	orderEventRepository := persistence.NewOrderEventRepository(configs, client)
	productRepository := catalog.NewProductRepository(client.Database(configs.MongoDBDatabaseName))
	userRepository := auth.NewUserRepository(configs, client)
	txRunner := persistence.NewMongoTxRunner(client)

	rabbitmqService, err := rabbitmq.NewRabbitMQService(configs.RabbitMQHostName, configs.RabbitMQExchange, configs.RabbitMQQueueName)
	if err != nil {
		logger.Fatal(ctx, "Failed to create RabbitMQ service", err)
	}
	defer rabbitmqService.Close()

	if !rabbitmqService.IsHealthy() {
		logger.Fatal(ctx, "RabbitMQ connection is not healthy", nil)
	}
	logger.Info(ctx, "RabbitMQ connection successful")

	// Business services
	orderService := domain.NewOrderService(logger, orderRepository, productRepository, orderEventRepository, txRunner, rabbitmqService)
	catalogService := catalog.NewCatalogService(logger, productRepository)
	notificationService := notification.NewNotificationService(logger)

	tokenManager := auth.NewTokenManager(configs.JWTSecret, configs.TOTPIssuer, configs.JWTSessionTTL, configs.JWTPendingTTL)
	totpAuthenticator := auth.NewTOTPAuthenticator(configs.TOTPIssuer)
	authService := auth.NewAuthService(logger, userRepository, tokenManager, totpAuthenticator)

	// Event handlers
	orderCreatedHandler := notificationHandlers.NewOrderCreatedEventHandler(rabbitmqService, notificationService, logger)

	eventListener := infrastructure.NewEventListener(rabbitmqService, logger)
	eventListener.RegisterHandler(events.OrderCreated, orderCreatedHandler)

	go func() {
		if err := eventListener.StartListening(ctx); err != nil {
			logger.Fatal(ctx, "Failed to start event listeners", err)
		}
	}()
	logger.Info(ctx, "Event listeners started successfully")

	// Controllers
	authRequired := controllers.AuthRequired(tokenManager)
	orderController := controllers.NewOrderController(orderService, logger)
	productController := controllers.NewProductController(catalogService, logger)
	authController := controllers.NewAuthController(authService, logger)
	twoFactorController := controllers.NewTwoFactorController(authService, logger)

	app := fiber.New(fiber.Config{
		ReadBufferSize:  81920,
		WriteBufferSize: 81920,
		ServerHeader:    "Order-API-Service",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Exception(c.Context(), "HTTP request error", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowCredentials: true,
		AllowOriginsFunc: func(_ string) bool { return true },
	}))
	app.Use(recover.New())
	app.Use(controllers.RequestLogger(logger))

	app.Get("/api/swagger/*", fiberSwagger.WrapHandler)
	app.Get("/api/healthCheck", func(c *fiber.Ctx) error {
		if err := client.Ping(c.Context(), nil); err != nil {
			logger.Exception(c.Context(), "Health check: MongoDB ping failed", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
		}
		if !rabbitmqService.IsHealthy() {
			logger.Warn(c.Context(), "Health check: RabbitMQ connection is unhealthy")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  "message queue connection failed",
			})
		}
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})

	orderController.Route(app, authRequired)
	productController.Route(app, authRequired)
	authController.Route(app)
	twoFactorController.Route(app, authRequired)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	serverShutdown := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting server on "+configs.ListenAddress)
		if err := app.Listen(configs.ListenAddress); err != nil {
			serverShutdown <- err
		}
	}()

	select {
	case <-c:
		logger.Info(ctx, "Shutdown signal received, shutting down gracefully...")
	case err := <-serverShutdown:
		logger.Exception(ctx, "Server error occurred", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Exception(ctx, "Server shutdown error", err)
	}

	logger.Info(ctx, "Server shutdown complete")
}
