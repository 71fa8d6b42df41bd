package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dojo-academy-system/handlers"
	"dojo-academy-system/models"
	"dojo-academy-system/services"
	"dojo-academy-system/utils"
	"dojo-academy-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // images only; video bytes never pass through here
	})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if os.Getenv("STRIPE_SECRET_KEY") == "" || os.Getenv("STRIPE_WEBHOOK_SECRET") == "" {
		log.Fatal("STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET environment variables not set")
	}
	if os.Getenv("AUTH_JWT_SECRET") == "" {
		log.Fatal("AUTH_JWT_SECRET environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Instructor{},
		&models.Course{},
		&models.Breakdown{},
		&models.BreakdownWatch{},
		&models.Purchase{},
		&models.Subscription{},
		&models.Enrollment{},
		&models.VideoAsset{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	var bus services.EventBus
	if os.Getenv("REDIS_ADDR") != "" {
		bus, err = services.NewRedisBus()
		if err != nil {
			log.Fatal("failed to connect to redis:", err)
		}
		log.Println("Change-event bus: redis")
	} else {
		bus = services.NewMemoryBus()
		log.Println("Change-event bus: in-process (REDIS_ADDR not set)")
	}

	userService := services.NewUserService(db)
	catalogService := services.NewCatalogService(db)
	breakdownService := services.NewBreakdownService(db)
	enrollmentService := services.NewEnrollmentService(db, bus)
	purchaseService := services.NewPurchaseService(db, bus)
	stripeService := services.NewStripeService(catalogService, purchaseService)
	videoService := services.NewVideoService(db)
	sseService := services.NewSSEService(db, bus)

	videoSync := workers.NewVideoSyncClient(db)
	videoSync.StartScheduler()

	handlers.SetupUserRoutes(app, userService, sseService)
	handlers.SetupCatalogRoutes(app, catalogService)
	handlers.SetupBreakdownRoutes(app, breakdownService)
	handlers.SetupEnrollmentRoutes(app, enrollmentService)
	handlers.SetupPaymentRoutes(app, purchaseService, stripeService)
	handlers.SetupVideoRoutes(app, videoService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":5300"
	}

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on %s", addr)
	log.Println("Video asset sync running (every 1m)")
	log.Printf("CORS configured for origins: %s", strings.Join(origins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
