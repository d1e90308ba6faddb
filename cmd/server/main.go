package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/handler"
	"hr-assistant-go/internal/middleware"
	"hr-assistant-go/internal/pipeline"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/internal/service"
	"hr-assistant-go/pkg/database"
	"hr-assistant-go/pkg/embedding"
	"hr-assistant-go/pkg/es"
	"hr-assistant-go/pkg/kafka"
	"hr-assistant-go/pkg/llm"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/storage"
	"hr-assistant-go/pkg/tika"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 初始化基础设施
	config.Init(*configPath)
	log.Init(config.Conf.Log.Level, config.Conf.Log.Format, config.Conf.Log.OutputPath)
	defer log.Sync()

	database.InitMySQL(config.Conf.Database.MySQL.DSN)
	database.InitRedis(config.Conf.Database.Redis.Addr, config.Conf.Database.Redis.Password, config.Conf.Database.Redis.DB)
	storage.InitMinIO(config.Conf.MinIO)
	kafka.InitProducer(config.Conf.Kafka)

	esClient, err := es.NewClient(config.Conf.Elasticsearch, config.Conf.Embedding.Dimensions)
	if err != nil {
		log.Fatal("初始化 Elasticsearch 客户端失败", err)
	}

	embeddingClient := embedding.NewClient(config.Conf.Embedding)
	llmClient := llm.NewClient(config.Conf.LLM)
	tikaClient := tika.NewClient(config.Conf.Tika)

	// 组装业务服务
	docRepo := repository.NewDocumentRepository(database.DB)
	guardrailService := service.NewGuardrailService(llmClient, config.Conf.Assistant.Guardrail)
	cacheService := service.NewCacheService(database.RDB, embeddingClient, config.Conf.Assistant.Cache)
	ragService := service.NewStreamingRagService(guardrailService, embeddingClient, esClient, llmClient, config.Conf.Assistant.RAG)
	answerer := service.NewCachingStreamingRagService(ragService, cacheService, guardrailService,
		config.Conf.Assistant.Chat, config.Conf.Assistant.Guardrail)
	docService := service.NewDocumentService(docRepo, esClient, cacheService, kafka.ProduceIndexTask,
		config.Conf.MinIO, config.Conf.Assistant.Documents)

	// 启动异步索引消费者
	processor := pipeline.NewProcessor(docRepo, esClient, embeddingClient, tikaClient, cacheService,
		config.Conf.MinIO, config.Conf.Assistant.RAG, config.Conf.Embedding)
	go kafka.StartConsumer(config.Conf.Kafka, processor)

	// 注册路由
	gin.SetMode(config.Conf.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	chatHandler := handler.NewChatHandler(answerer, config.Conf.Assistant.Chat.MaxQuestionLength)
	docHandler := handler.NewDocumentHandler(docService)

	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)

		api.POST("/chat", chatHandler.Chat)
		api.POST("/chat/stream", chatHandler.ChatStream)
		api.GET("/chat/ws", chatHandler.ChatWebSocket)

		api.POST("/documents", docHandler.Upload)
		api.GET("/documents", docHandler.List)
		api.GET("/documents/categories", docHandler.Categories)
		api.GET("/documents/:id", docHandler.Get)
		api.PUT("/documents/:id", docHandler.Rename)
		api.DELETE("/documents/:id", docHandler.Delete)
		api.GET("/documents/:id/file", docHandler.Download)
	}

	srv := &http.Server{
		Addr:    ":" + config.Conf.Server.Port,
		Handler: r,
	}

	go func() {
		log.Infof("HTTP 服务已启动，监听端口 %s", config.Conf.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP 服务启动失败", err)
		}
	}()

	// 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务关闭异常", err)
	}
	log.Info("服务已退出")
}
