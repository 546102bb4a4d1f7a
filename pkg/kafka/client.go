// Package kafka 提供了向 Kafka 发布会话事件的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fsdm-chat-go/internal/config"
	"fsdm-chat-go/pkg/events"
	"fsdm-chat-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// messageWriter 是 kafka.Writer 中用到的子集，测试时可替换。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 将会话事件写入 Kafka 主题。
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(splitBrokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return &Producer{writer: w, topic: cfg.Topic}
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Publish 发送一个会话事件。同一对话的事件使用相同的 key，保证分区内有序。
func (p *Producer) Publish(ctx context.Context, event events.ConversationEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TranscriptKey),
		Value: value,
		Time:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to write event to topic %s: %w", p.topic, err)
	}
	return nil
}

// Close 刷新并关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}
