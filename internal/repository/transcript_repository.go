// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"fsdm-chat-go/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTranscriptNotFound 表示该键下还没有保存过对话记录。
var ErrTranscriptNotFound = errors.New("transcript not found")

// TranscriptRepository 定义了对话记录的持久化接口。
// 整份消息日志以 JSON 数组的形式保存在一个固定键下，后写覆盖先写。
type TranscriptRepository interface {
	Load(ctx context.Context, key string) ([]model.Message, error)
	Save(ctx context.Context, key string, messages []model.Message) error
}

func encodeTranscript(messages []model.Message) ([]byte, error) {
	if messages == nil {
		messages = []model.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return data, nil
}

func decodeTranscript(data []byte) ([]model.Message, error) {
	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return messages, nil
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

type redisTranscriptRepository struct {
	redisClient *redis.Client
}

// NewRedisTranscriptRepository 创建基于 Redis 的 TranscriptRepository。
func NewRedisTranscriptRepository(redisClient *redis.Client) TranscriptRepository {
	return &redisTranscriptRepository{redisClient: redisClient}
}

func redisKey(key string) string {
	return fmt.Sprintf("conversation:%s", key)
}

// Load 从 Redis 读取对话记录。
func (r *redisTranscriptRepository) Load(ctx context.Context, key string) ([]model.Message, error) {
	jsonData, err := r.redisClient.Get(ctx, redisKey(key)).Result()
	if err == redis.Nil {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return decodeTranscript([]byte(jsonData))
}

// Save 覆盖写入 Redis 中的对话记录，不设置过期时间。
func (r *redisTranscriptRepository) Save(ctx context.Context, key string, messages []model.Message) error {
	jsonData, err := encodeTranscript(messages)
	if err != nil {
		return err
	}
	if err := r.redisClient.Set(ctx, redisKey(key), jsonData, 0).Err(); err != nil {
		return fmt.Errorf("failed to set transcript: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// MySQL (GORM)
// ---------------------------------------------------------------------------

type gormTranscriptRepository struct {
	db *gorm.DB
}

// NewGormTranscriptRepository 创建基于 GORM 的 TranscriptRepository。
func NewGormTranscriptRepository(db *gorm.DB) TranscriptRepository {
	return &gormTranscriptRepository{db: db}
}

func (r *gormTranscriptRepository) Load(ctx context.Context, key string) ([]model.Message, error) {
	var t model.Transcript
	err := r.db.WithContext(ctx).Where("transcript_key = ?", key).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transcript: %w", err)
	}
	return decodeTranscript([]byte(t.Payload))
}

func (r *gormTranscriptRepository) Save(ctx context.Context, key string, messages []model.Message) error {
	data, err := encodeTranscript(messages)
	if err != nil {
		return err
	}
	t := model.Transcript{Key: key, Payload: string(data)}
	// 主键冲突时整行更新
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&t).Error
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

type memoryTranscriptRepository struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryTranscriptRepository 创建进程内的 TranscriptRepository，同样经过 JSON 序列化。
func NewMemoryTranscriptRepository() TranscriptRepository {
	return &memoryTranscriptRepository{items: make(map[string][]byte)}
}

func (r *memoryTranscriptRepository) Load(_ context.Context, key string) ([]model.Message, error) {
	r.mu.RLock()
	data, ok := r.items[key]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrTranscriptNotFound
	}
	return decodeTranscript(data)
}

func (r *memoryTranscriptRepository) Save(_ context.Context, key string, messages []model.Message) error {
	data, err := encodeTranscript(messages)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.items[key] = data
	r.mu.Unlock()
	return nil
}
