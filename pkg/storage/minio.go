// Package storage 提供了与对象存储服务（MinIO）交互的功能，用于归档被清空的对话。
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fsdm-chat-go/internal/config"
	"fsdm-chat-go/internal/model"
	"fsdm-chat-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectPutter 是 minio.Client 中归档用到的子集。
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) *minio.Client {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 检查存储桶是否存在，如果不存在则创建
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("创建 MinIO 存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	}
	return client
}

// TranscriptArchiver 在对话被清空前把旧的消息日志写入对象存储。
type TranscriptArchiver struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// NewTranscriptArchiver 创建一个归档器。
func NewTranscriptArchiver(client *minio.Client, bucket string) *TranscriptArchiver {
	return &TranscriptArchiver{client: client, bucket: bucket, now: time.Now}
}

// ObjectName 返回某次归档使用的对象路径。
func ObjectName(key string, at time.Time) string {
	return fmt.Sprintf("transcripts/%s/%s.json", key, at.UTC().Format("20060102T150405.000000000Z"))
}

// Archive 上传消息日志并返回对象名。
func (a *TranscriptArchiver) Archive(ctx context.Context, key string, messages []model.Message) (string, error) {
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript archive: %w", err)
	}
	objectName := ObjectName(key, a.now())
	_, err = a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload transcript archive: %w", err)
	}
	return objectName, nil
}
