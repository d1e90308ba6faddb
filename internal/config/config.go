// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Assistant     AssistantConfig     `mapstructure:"assistant"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
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

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// AssistantConfig 聚合了 HR 助手核心流程的所有可调参数。
type AssistantConfig struct {
	Cache     CacheConfig     `mapstructure:"cache"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Guardrail GuardrailConfig `mapstructure:"guardrail"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

// CacheConfig 存储语义缓存相关的配置。
type CacheConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	TTLSeconds          int     `mapstructure:"ttl_seconds"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// RAGConfig 存储检索增强生成相关的配置。
type RAGConfig struct {
	MaxResults     int     `mapstructure:"max_results"`
	MinScore       float64 `mapstructure:"min_score"`
	ChunkSize      int     `mapstructure:"chunk_size"`
	ChunkOverlap   int     `mapstructure:"chunk_overlap"`
	PromptTemplate string  `mapstructure:"prompt_template"`
	NoResultText   string  `mapstructure:"no_result_text"`
}

// GuardrailConfig 存储输入/输出护栏相关的配置。
// 关键词与检测器列表按部署的语言环境配置，默认为法语。
type GuardrailConfig struct {
	ClassificationTimeoutSeconds int      `mapstructure:"classification_timeout_seconds"`
	OffTopicKeywords             []string `mapstructure:"off_topic_keywords"`
	HarmfulKeywords              []string `mapstructure:"harmful_keywords"`
	UnsafeFallbackText           string   `mapstructure:"unsafe_fallback_text"`
}

// DocumentsConfig 存储文档上传相关的配置。
type DocumentsConfig struct {
	MaxSizeMB int `mapstructure:"max_size_mb"`
}

// ChatConfig 存储聊天请求与缓存回放相关的配置。
type ChatConfig struct {
	MaxQuestionLength  int `mapstructure:"max_question_length"`
	CachedTokenDelayMS int `mapstructure:"cached_token_delay_ms"`
	CacheWriteWorkers  int `mapstructure:"cache_write_workers"`
	CacheWriteQueue    int `mapstructure:"cache_write_queue"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	ApplyDefaults(&Conf)
}

// ApplyDefaults 为未配置的核心参数填充默认值，保证流程可运行。
func ApplyDefaults(c *Config) {
	a := &c.Assistant
	if a.Cache.TTLSeconds == 0 {
		a.Cache.TTLSeconds = 3600
	}
	if a.Cache.SimilarityThreshold == 0 {
		a.Cache.SimilarityThreshold = 0.85
	}
	if a.RAG.MaxResults == 0 {
		a.RAG.MaxResults = 5
	}
	if a.RAG.MinScore == 0 {
		a.RAG.MinScore = 0.3
	}
	if a.RAG.ChunkSize == 0 {
		a.RAG.ChunkSize = 500
	}
	if a.RAG.ChunkOverlap == 0 {
		a.RAG.ChunkOverlap = 50
	}
	if a.Guardrail.ClassificationTimeoutSeconds == 0 {
		a.Guardrail.ClassificationTimeoutSeconds = 5
	}
	if a.Documents.MaxSizeMB == 0 {
		a.Documents.MaxSizeMB = 10
	}
	if a.Chat.MaxQuestionLength == 0 {
		a.Chat.MaxQuestionLength = 1000
	}
	if a.Chat.CachedTokenDelayMS == 0 {
		a.Chat.CachedTokenDelayMS = 10
	}
	if a.Chat.CacheWriteWorkers == 0 {
		a.Chat.CacheWriteWorkers = 2
	}
	if a.Chat.CacheWriteQueue == 0 {
		a.Chat.CacheWriteQueue = 64
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 768
	}
}
