package main

import (
	"context"
	"log"
	"time"

	"notu/backend/internal/config"
	"notu/backend/internal/database"
	"notu/backend/internal/handlers"
	"notu/backend/internal/middleware"
	"notu/backend/internal/pending"
	"notu/backend/internal/repository"
	"notu/backend/internal/service"
	"notu/backend/internal/storage"
	"notu/backend/internal/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	db := client.Database(cfg.DBName)

	store, err := storage.NewImageStore(storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		PublicURL: cfg.MinioPublicURL,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize image store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("Failed to prepare image bucket: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	users := repository.NewUserRepository(db)
	notes := repository.NewNoteRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create user indexes: %v", err)
	}
	if err := notes.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create note indexes: %v", err)
	}

	tokens := token.NewService(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tracker := pending.NewTracker(rdb)
	noteService := service.NewNoteService(notes, store, tracker)

	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")
	api.GET("/health", handlers.HealthCheck)

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register(users, tokens))
		auth.POST("/login", handlers.Login(users, tokens))
		auth.POST("/refresh", handlers.Refresh(users, tokens))
	}

	protected := api.Group("/notes").Use(middleware.AuthMiddleware(tokens))
	{
		protected.GET("", handlers.ListNotes(noteService))
		protected.GET("/search", handlers.SearchNotes(noteService))
		protected.POST("", handlers.CreateNote(noteService))
		protected.GET("/:id", handlers.GetNote(noteService))
		protected.PUT("/:id", handlers.UpdateNote(noteService))
		protected.DELETE("/:id", handlers.DeleteNote(noteService))
		protected.POST("/:id/restore", handlers.RestoreNote(noteService))
		protected.DELETE("/trash/empty", handlers.EmptyTrash(noteService))
		protected.POST("/upload", handlers.UploadImage(noteService))
		protected.POST("/upload-file", handlers.UploadImageFile(noteService, cfg.MaxUploadBytes))
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
