package database

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Tahmied/arterest/internal/config"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

// TTL for cached unread badge counts. Short on purpose: the cache only
// absorbs badge polling, the realtime channel carries the fresh events.
const unreadCountTTL = 30 * time.Second

func InitRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	_, err := Redis.Ping(Ctx).Result()
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Rate limiting and badge caching will be disabled.", err)
	} else {
		log.Println("Connected to Redis successfully")
	}
}

// CheckRateLimit enforces a fixed-window per-user limit, used for message sends.
// Returns true when the action is allowed. Errors mean Redis is unreachable;
// callers should fail open.
func CheckRateLimit(userID string, limit int, duration time.Duration) (bool, error) {
	if Redis == nil {
		return true, nil
	}
	key := fmt.Sprintf("rate_limit:%s", userID)
	count, err := Redis.Incr(Ctx, key).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		Redis.Expire(Ctx, key, duration)
	}

	if count > int64(limit) {
		return false, nil
	}
	return true, nil
}

func unreadCountKey(userID string) string {
	return fmt.Sprintf("unread_count:%s", userID)
}

// GetCachedUnreadCount returns the cached notification badge count for a user.
// The bool is false on a miss or when Redis is unavailable.
func GetCachedUnreadCount(userID string) (int64, bool) {
	if Redis == nil {
		return 0, false
	}
	val, err := Redis.Get(Ctx, unreadCountKey(userID)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

func SetCachedUnreadCount(userID string, count int64) {
	if Redis == nil {
		return
	}
	Redis.Set(Ctx, unreadCountKey(userID), strconv.FormatInt(count, 10), unreadCountTTL)
}

// InvalidateUnreadCount drops the cached badge count after any write that
// changes it (new notification, mark-read).
func InvalidateUnreadCount(userID string) {
	if Redis == nil {
		return
	}
	Redis.Del(Ctx, unreadCountKey(userID))
}
