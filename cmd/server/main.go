// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fsdm-chat-go/internal/config"
	"fsdm-chat-go/internal/handler"
	"fsdm-chat-go/internal/middleware"
	"fsdm-chat-go/internal/repository"
	"fsdm-chat-go/internal/service"
	"fsdm-chat-go/pkg/database"
	"fsdm-chat-go/pkg/kafka"
	"fsdm-chat-go/pkg/log"
	"fsdm-chat-go/pkg/rag"
	"fsdm-chat-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化对话记录存储
	transcriptRepo := newTranscriptRepository(cfg)

	// 4. 可选的归档与事件发布
	var options []service.Option
	if cfg.MinIO.Enabled {
		minioClient := storage.InitMinIO(cfg.MinIO)
		options = append(options, service.WithArchiver(storage.NewTranscriptArchiver(minioClient, cfg.MinIO.BucketName)))
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error("关闭 Kafka 生产者失败", err)
			}
		}()
		options = append(options, service.WithEventPublisher(producer))
	}

	// 5. 初始化 Service (依赖注入)
	ragClient := rag.NewClient(cfg.RAG)
	conversationService := service.NewConversationService(transcriptRepo, ragClient, service.ConversationOptions{
		Key:            cfg.Storage.Key,
		WelcomeMessage: cfg.Chatbot.WelcomeMessage,
		RestartDelay:   cfg.Chatbot.RestartDelay,
	}, options...)
	conversationService.Initialize(context.Background())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RAG.Timeout)
		defer cancel()
		if ragClient.TestConnection(ctx) {
			log.Infof("问答服务连接正常: %s", cfg.RAG.QueryURL())
		} else {
			log.Warnf("问答服务暂不可用: %s，将使用预设回复", cfg.RAG.QueryURL())
		}
	}()

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 7. 注册路由
	conversationHandler := handler.NewConversationHandler(conversationService, cfg.Chatbot, ragClient)
	chatHandler := handler.NewChatHandler(conversationService)
	apiV1 := r.Group("/api/v1")
	{
		chat := apiV1.Group("/chat")
		{
			chat.GET("/profile", conversationHandler.GetProfile)
			chat.GET("/messages", conversationHandler.GetMessages)
			chat.POST("/messages", conversationHandler.SendMessage)
			chat.POST("/clear", conversationHandler.Clear)
			chat.POST("/restart", conversationHandler.Restart)
			chat.GET("/status", conversationHandler.GetStatus)
			chat.GET("/ws", chatHandler.Handle)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// newTranscriptRepository 根据 storage.driver 选择对话记录的存储后端。
func newTranscriptRepository(cfg config.Config) repository.TranscriptRepository {
	switch cfg.Storage.Driver {
	case "mysql":
		log.Info("对话记录存储: MySQL")
		return repository.NewGormTranscriptRepository(database.InitMySQL(cfg.Database.MySQL.DSN))
	case "memory":
		log.Warnf("对话记录存储: 内存，重启后记录会丢失")
		return repository.NewMemoryTranscriptRepository()
	case "redis", "":
		log.Info("对话记录存储: Redis")
		return repository.NewRedisTranscriptRepository(database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB))
	default:
		log.Fatalf("未知的存储驱动: %s", cfg.Storage.Driver)
		return nil
	}
}
