package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/embedding"
	"hr-assistant-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// cacheKeyPrefix 是语义缓存条目在 Redis 中的统一前缀。
const cacheKeyPrefix = "hr-assistant:cache:"

// scanBatchSize 是单次 SCAN 返回的建议条数。
const scanBatchSize = 100

// CacheService 定义了基于语义相似度的回答缓存接口。
// 缓存属于尽力而为的优化层：任何内部失败都会被吞掉并记录日志，
// 对调用方表现为缓存未命中或写入被跳过，绝不向上传播错误。
type CacheService interface {
	// Lookup 为问题生成向量并在缓存中寻找相似度最高的条目。
	// 只有相似度达到阈值才算命中。
	Lookup(ctx context.Context, question string) (*model.CachedResponse, bool)
	// Store 将一次完整的问答结果写入缓存，带 TTL。
	Store(ctx context.Context, question, response string, sources []string)
	// InvalidateAll 清空全部缓存条目。文档集变化后已缓存的回答可能引用已删除的内容。
	InvalidateAll(ctx context.Context)
}

type cacheService struct {
	rdb       *redis.Client
	embedder  embedding.Client
	enabled   bool
	ttl       time.Duration
	threshold float64
}

// NewCacheService 创建一个新的 CacheService 实例。
func NewCacheService(rdb *redis.Client, embedder embedding.Client, cfg config.CacheConfig) CacheService {
	return &cacheService{
		rdb:       rdb,
		embedder:  embedder,
		enabled:   cfg.Enabled,
		ttl:       time.Duration(cfg.TTLSeconds) * time.Second,
		threshold: cfg.SimilarityThreshold,
	}
}

// Lookup 扫描全部缓存条目并返回相似度最高且达到阈值的那条。
// 相似度相同时保留先被扫描到的条目。
func (s *cacheService) Lookup(ctx context.Context, question string) (*model.CachedResponse, bool) {
	if !s.enabled {
		return nil, false
	}

	queryVector, err := s.embedder.CreateEmbedding(ctx, question)
	if err != nil {
		log.Warnf("[Cache] 生成查询向量失败，按未命中处理: %v", err)
		return nil, false
	}

	var best *model.CachedResponse
	var bestScore float64

	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, cacheKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			log.Warnf("[Cache] 扫描缓存键失败，按未命中处理: %v", err)
			return nil, false
		}

		for _, key := range keys {
			entry, ok := s.loadEntry(ctx, key)
			if !ok {
				continue
			}

			score, err := CosineSimilarity(queryVector, entry.QuestionEmbedding)
			if err != nil {
				log.Warnf("[Cache] 缓存条目 %s 向量维度异常，跳过: %v", key, err)
				continue
			}

			if score >= s.threshold && score > bestScore {
				best = entry
				bestScore = score
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if best == nil {
		log.Infof("[Cache] 缓存未命中: %s", question)
		return nil, false
	}

	log.Infof("[Cache] 缓存命中: 相似度=%.4f, 原问题=%s", bestScore, best.Question)
	return best, true
}

// Store 生成问题向量并以随机键写入缓存条目。
func (s *cacheService) Store(ctx context.Context, question, response string, sources []string) {
	if !s.enabled {
		return
	}

	vector, err := s.embedder.CreateEmbedding(ctx, question)
	if err != nil {
		log.Warnf("[Cache] 生成缓存向量失败，跳过本次写入: %v", err)
		return
	}

	entry := model.CachedResponse{
		Question:          question,
		QuestionEmbedding: vector,
		Response:          response,
		Sources:           sources,
		CachedAt:          time.Now(),
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		log.Warnf("[Cache] 序列化缓存条目失败，跳过本次写入: %v", err)
		return
	}

	key := cacheKeyPrefix + uuid.New().String()
	if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		log.Warnf("[Cache] 写入缓存失败，跳过本次写入: %v", err)
		return
	}

	log.Infof("[Cache] 已缓存回答: key=%s, question=%s", key, question)
}

// InvalidateAll 扫描并删除全部缓存条目。
func (s *cacheService) InvalidateAll(ctx context.Context) {
	if !s.enabled {
		return
	}

	var deleted int
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, cacheKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			log.Warnf("[Cache] 清空缓存时扫描失败: %v", err)
			return
		}

		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				log.Warnf("[Cache] 删除缓存键失败: %v", err)
				return
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	log.Infof("[Cache] 缓存已清空，删除 %d 条", deleted)
}

// loadEntry 读取并反序列化单个缓存条目，损坏或过期的条目按不存在处理。
func (s *cacheService) loadEntry(ctx context.Context, key string) (*model.CachedResponse, bool) {
	raw, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Warnf("[Cache] 读取缓存条目 %s 失败: %v", key, err)
		return nil, false
	}

	var entry model.CachedResponse
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		log.Warnf("[Cache] 缓存条目 %s 内容损坏，跳过: %v", key, err)
		return nil, false
	}
	return &entry, true
}

// CosineSimilarity 计算两个向量的余弦相似度。
// 维度不一致时返回错误；任一向量为零向量时相似度为 0。
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions do not match: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
