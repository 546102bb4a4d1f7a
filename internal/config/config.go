// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Chatbot  ChatbotConfig  `mapstructure:"chatbot"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ChatbotConfig 描述助手的对外形象与会话行为。
type ChatbotConfig struct {
	Name           string        `mapstructure:"name"`
	Personality    string        `mapstructure:"personality"`
	WelcomeMessage string        `mapstructure:"welcome_message"`
	RestartDelay   time.Duration `mapstructure:"restart_delay"`
}

// RAGConfig 存储外部问答服务的配置。
type RAGConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	QueryPath     string        `mapstructure:"query_path"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ProbeQuestion string        `mapstructure:"probe_question"`
}

// StorageConfig 决定对话记录持久化到哪里。
// Driver: redis | mysql | memory
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Key    string `mapstructure:"key"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，用于归档被清空的对话。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig 存储 Kafka 相关的配置，用于发布会话事件。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// QueryURL 返回问答接口的完整地址。
func (c RAGConfig) QueryURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.QueryPath
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("chatbot.name", "Assistant FSDM")
	v.SetDefault("chatbot.personality", "spécialisé dans tous les masters de la Faculté des Sciences Dhar El Mahraz (FSDM)")
	v.SetDefault("chatbot.welcome_message", "Bonjour ! Je suis votre assistant spécialisé dans tous les masters de FSDM. Je peux vous renseigner sur les différents masters, modules, cours, débouchés et tout ce qui concerne les formations de la faculté. Comment puis-je vous aider ?")
	v.SetDefault("chatbot.restart_delay", 100*time.Millisecond)

	v.SetDefault("rag.base_url", "http://127.0.0.1:8000")
	v.SetDefault("rag.query_path", "/query")
	v.SetDefault("rag.timeout", 60*time.Second)
	v.SetDefault("rag.probe_question", "test")

	v.SetDefault("storage.driver", "redis")
	v.SetDefault("storage.key", "chatHistory")

	v.SetDefault("database.redis.addr", "127.0.0.1:6379")

	v.SetDefault("minio.bucket_name", "chat-transcripts")
	v.SetDefault("kafka.topic", "chat-events")
}

// Load 读取配置文件（可选）、.env 与 FSDM_ 前缀的环境变量，返回解析后的配置。
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FSDM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
