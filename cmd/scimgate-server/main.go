package main

import (
	"log"
	"os"

	"github.com/coleleep/scimgate/pkg/scimgate/auth"
	"github.com/coleleep/scimgate/pkg/scimgate/database"
	"github.com/coleleep/scimgate/pkg/scimgate/models"
	"github.com/coleleep/scimgate/pkg/scimgate/scim"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Get database DSN from environment or use default
	dsn := os.Getenv("SCIMGATE_DB_DSN")
	if dsn == "" {
		dsn = "scimgate.db"
	}

	// Connect to database
	if err := database.Connect(dsn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Get base URL from environment or use default
	baseURL := os.Getenv("SCIMGATE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	adminPassword := os.Getenv("SCIMGATE_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "changeme"
		log.Println("SCIMGATE_ADMIN_PASSWORD not set - using default admin password")
	}
	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		authHandler := auth.NewHandler(passwordHash)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Admin routes (JWT only, admin role required)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())

		// Provisioning token management (admin only)
		tokenHandler := scim.NewTokenHandler(database.GetDB())
		tokenHandler.RegisterAdminRoutes(adminGroup)
	}

	// SCIM routes (bearer token auth, outside /api to follow SCIM spec)
	scimGroup := r.Group("/scim/v2")
	scimGroup.Use(scim.RequestLogger(logger), scim.SCIMAuthMiddleware(database.GetDB()))
	{
		userHandler := scim.NewUserHandler(database.GetDB(), baseURL)
		userHandler.RegisterRoutes(scimGroup)

		groupHandler := scim.NewGroupHandler(database.GetDB(), baseURL)
		groupHandler.RegisterRoutes(scimGroup)

		configHandler := scim.NewConfigHandler(baseURL)
		configHandler.RegisterRoutes(scimGroup)
	}

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting scimgate server on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
