package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"comptes/internal/handlers"
	"comptes/internal/middleware"
	"comptes/internal/models"
	"comptes/internal/repositories"
	"comptes/internal/services"
	"comptes/pkg/mailer"
	"comptes/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":3000")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("SQLITE_PATH", "comptes.db")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("SMTP_ADDR", "")
	viper.SetDefault("SMTP_FROM", "no-reply@localhost")
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("BASE_URL", "http://localhost:3000")
	viper.SetDefault("LOGIN_URL", "http://localhost:5173/auth/login")
	viper.SetDefault("VERIFICATION_TTL", 24*time.Hour)
	viper.AutomaticEnv() // Load environment variables

	// --- Database ---
	// Postgres in production when DATABASE_URL is set, sqlite otherwise.
	var dialector gorm.Dialector
	if dsn := viper.GetString("DATABASE_URL"); dsn != "" {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(viper.GetString("SQLITE_PATH"))
	}
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.RevokedToken{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- RabbitMQ (optional) ---
	var mqClient *rabbitmq.Client
	if mqURL := viper.GetString("RABBITMQ_URL"); mqURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: mqURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set, account events will not be published")
	}

	// --- Mailer ---
	var m mailer.Mailer = mailer.LogMailer{}
	if smtpAddr := viper.GetString("SMTP_ADDR"); smtpAddr != "" {
		m, err = mailer.NewSMTPMailer(mailer.Config{
			Addr:     smtpAddr,
			From:     viper.GetString("SMTP_FROM"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: viper.GetString("SMTP_PASSWORD"),
		})
		if err != nil {
			log.Fatalf("Failed to initialize SMTP mailer: %v", err)
		}
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	tokenRepo := repositories.NewGORMTokenRepository(db)

	// --- Services ---
	accountService := services.NewAccountService(
		userRepo,
		m,
		mqClient,
		viper.GetString("BASE_URL"),
		viper.GetDuration("VERIFICATION_TTL"),
	)
	authService := services.NewAuthService(userRepo, tokenRepo, viper.GetString("JWT_SECRET"))

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(accountService, viper.GetString("LOGIN_URL"))
	authHandler := handlers.NewAuthHandler(authService)

	// --- Fiber App ---
	app := fiber.New()
	app.Use(logger.New()) // Request logger

	authRequired := middleware.AuthRequired(authService)
	authHandler.RegisterRoutes(app, authRequired)
	userHandler.RegisterRoutes(app)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Account Events Consumer ---
	if mqClient != nil {
		log.Println("Starting RabbitMQ consumer for account events...")
		messageHandler := func(msg amqp.Delivery) error {
			log.Printf("Received account event %s (Tag: %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))
			return nil // Return nil to acknowledge
		}
		if consumerErr := mqClient.ConsumeAccountEvents(messageHandler); consumerErr != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
		}
	}

	// --- Revoked Token Purge ---
	// Revocation rows are useless once the token itself has expired.
	purgeDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if purged, purgeErr := tokenRepo.PurgeExpired(time.Now()); purgeErr != nil {
					log.Printf("Failed to purge expired revoked tokens: %v", purgeErr)
				} else if purged > 0 {
					log.Printf("Purged %d expired revoked tokens", purged)
				}
			case <-purgeDone:
				return
			}
		}
	}()

	// --- Start HTTP Server ---
	appPort := viper.GetString("APP_PORT")
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")
	close(purgeDone)

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
