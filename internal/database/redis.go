// internal/database/redis.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/infonomu/bni/internal/config"
)

// NewRedisClient connects the refresh-token store. A nil return means Redis
// is unreachable; callers degrade by falling back to stateless refresh
// tokens (no revocation list).
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis unavailable (%v); refresh-token revocation disabled", err)
		return nil
	}

	log.Println("Redis connection established successfully")
	return client
}
