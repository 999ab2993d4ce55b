package main

import (
	"context"
	"log"
	"time"

	"notu/backend/internal/config"
	"notu/backend/internal/pending"
	"notu/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Sweeps standalone uploads that were never attached to a note: any tracked
// reference older than PENDING_UPLOAD_TTL has its remote object deleted and
// its tracker entry dropped. Run from cron; it is safe to run repeatedly.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

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

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	tracker := pending.NewTracker(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := tracker.Expired(ctx, cfg.PendingUploadTTL)
	if err != nil {
		log.Fatalf("Failed to list pending uploads: %v", err)
	}
	if len(expired) == 0 {
		log.Println("No orphaned uploads to clean up")
		return
	}

	reclaimed := 0
	for _, publicID := range expired {
		if err := store.Delete(ctx, publicID); err != nil {
			// Leave the entry so the next run retries it.
			log.Printf("Could not delete orphaned object %s: %v", publicID, err)
			continue
		}
		if err := tracker.Clear(ctx, publicID); err != nil {
			log.Printf("Could not untrack %s: %v", publicID, err)
			continue
		}
		reclaimed++
	}
	log.Printf("Cleanup finished: reclaimed %d of %d orphaned upload(s)", reclaimed, len(expired))
}
