package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"skillswap/internal/handlers"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/repositories"
	"skillswap/internal/services"
	"skillswap/pkg/rabbitmq"
)

// NewApp builds the Fiber application with all routes wired up. The
// signing secret and token TTL are passed in explicitly; nothing inside
// the handlers reads configuration from ambient state.
func NewApp(db *gorm.DB, publisher services.EventPublisher, jwtSecret string, tokenTTL time.Duration, clientURL string) *fiber.App {
	userRepo := repositories.NewGORMUserRepository(db)

	authService := services.NewAuthService(userRepo, publisher, jwtSecret, tokenTTL)
	userService := services.NewUserService(userRepo)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)

	app := fiber.New(fiber.Config{
		// Unexpected faults become a generic 500; detail stays in the log.
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}
			if code == fiber.StatusInternalServerError {
				log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
				return c.Status(code).JSON(fiber.Map{
					"success": false,
					"message": "Internal Server Error",
				})
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     clientURL,
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	authRequired := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(api, authRequired)
	userHandler.RegisterRoutes(api, authRequired)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":   true,
			"message":   "SkillSwap API is running.",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Anything not matched above is a 404, not Fiber's default text body.
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Route " + c.OriginalURL() + " not found.",
		})
	})

	return app
}

// openDatabase connects to the configured database. SQLite is supported
// for local development and tests; production runs on PostgreSQL.
func openDatabase(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		// Needed so unique-index violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	}
	switch driver {
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return gorm.Open(postgres.Open(dsn), cfg)
	}
}

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=skillswap port=5432 sslmode=disable")
	viper.SetDefault("JWT_EXPIRE", "168h") // 7 days
	viper.SetDefault("CLIENT_URL", "http://localhost:5173")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv()

	jwtSecret := viper.GetString("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	tokenTTL, err := time.ParseDuration(viper.GetString("JWT_EXPIRE"))
	if err != nil {
		log.Fatalf("Invalid JWT_EXPIRE duration: %v", err)
	}

	// --- Database ---
	db, err := openDatabase(viper.GetString("DATABASE_DRIVER"), viper.GetString("DATABASE_DSN"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- RabbitMQ (optional) ---
	// The API publishes account-lifecycle events; with no broker
	// configured, registration still works and events are skipped.
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if rabbitURL := viper.GetString("RABBITMQ_URL"); rabbitURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		publisher = mqClient

		go func() {
			log.Println("Starting RabbitMQ consumer for user events...")
			consumerErr := mqClient.ConsumeUserEvents(func(msg amqp.Delivery) error {
				// Placeholder consumer: downstream this is where welcome
				// mail or analytics hooks in.
				log.Printf("Received user event %s (tag %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
				return nil
			})
			if consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	} else {
		log.Println("RABBITMQ_URL not set; account events disabled.")
	}

	app := NewApp(db, publisher, jwtSecret, tokenTTL, viper.GetString("CLIENT_URL"))

	// --- Start HTTP Server ---
	appPort := viper.GetString("APP_PORT")
	log.Printf("Starting SkillSwap server on %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
