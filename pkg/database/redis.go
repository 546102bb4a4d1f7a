// Package database 负责初始化对话记录使用的 Redis / MySQL 连接。
package database

import (
	"context"
	"fsdm-chat-go/pkg/log"
	"time"

	"github.com/go-redis/redis/v8"
)

// InitRedis 初始化 Redis 客户端连接
func InitRedis(addr, password string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Infof("Redis client connected successfully, addr: %s", addr)
	return rdb
}
