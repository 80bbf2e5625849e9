package main

import (
	"log"
	"os"
	"time"

	"quizhub/database"
	"quizhub/handlers"
	"quizhub/middleware"
	"quizhub/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	validateEnvironment()

	database.InitDB()
	defer database.CloseDB()

	handlers.Init(database.GetDB())

	cleanup := services.NewCleanupService(database.GetDB())
	cleanup.Start()
	defer cleanup.Stop()

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	app.Use(middleware.RateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.AuthRateLimitMiddleware())
	authGroup.Post("/guest", handlers.GuestLogin)
	authGroup.Post("/login", handlers.Login)
	authGroup.Post("/register", handlers.Register)
	authGroup.Get("/me", middleware.AuthMiddleware, handlers.Me)

	// Quiz authoring and browsing
	quizGroup := api.Group("/quizzes")
	quizGroup.Use(middleware.AuthMiddleware)
	quizGroup.Post("/", handlers.CreateQuiz)
	quizGroup.Get("/", handlers.ListQuizzes)
	quizGroup.Get("/:id", handlers.GetQuiz)

	// Solo play
	soloGroup := api.Group("/solo")
	soloGroup.Use(middleware.AuthMiddleware)
	soloGroup.Post("/start", handlers.StartSoloGame)
	soloGroup.Post("/:id/answer", handlers.SubmitSoloAnswer)
	soloGroup.Post("/:id/finish", handlers.FinishSoloGame)

	// Multiplayer game sessions
	gameGroup := api.Group("/games")
	gameGroup.Use(middleware.AuthMiddleware)
	gameGroup.Post("/", handlers.CreateGameSession)
	gameGroup.Post("/join", handlers.JoinGameSession)
	gameGroup.Get("/:id", handlers.GetGameSession)
	gameGroup.Get("/:id/leaderboard", handlers.GetLeaderboard)
	gameGroup.Get("/:id/results", handlers.GetGameResults)
	gameGroup.Post("/:id/finish", handlers.FinishGameSession)
	gameGroup.Post("/:id/leave", handlers.LeaveGameSession)

	// Debug endpoints for troubleshooting live rooms (remove in production)
	api.Get("/debug/rooms", middleware.AdminAuthMiddleware, handlers.GetActiveRooms)

	// WebSocket endpoint for live games
	app.Use("/ws", handlers.UpgradeMiddleware)
	app.Get("/ws", handlers.WebSocketHandler)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🔐 JWT Secret configured: %v", os.Getenv("JWT_SECRET") != "")
	log.Printf("🌐 WebSocket available at ws://localhost:%s/ws", port)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	if os.Getenv("APP_ENV") == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
