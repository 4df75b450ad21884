package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/chatdesk/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// NewRedis builds a client for cfg and pings it once.
func NewRedis(cfg config.AppConfig) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

// GetRedis returns a singleton Redis client based on loaded config, or nil
// when Redis cannot be reached.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		rc, err := NewRedis(config.Get())
		if err != nil {
			Sugar.Warnf("redis unavailable: %v", err)
			return
		}
		redisClient = rc
	})
	return redisClient
}
