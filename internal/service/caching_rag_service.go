package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/llm"
	"hr-assistant-go/pkg/log"
)

// 输出被拦截时替换给用户的文案。
const defaultUnsafeFallbackText = "Je ne peux pas partager cette réponse car elle pourrait contenir des informations sensibles. Veuillez contacter directement le service RH pour ce sujet."

// cacheWriteJob 是一次异步缓存写入任务。
type cacheWriteJob struct {
	question string
	response string
	sources  []string
}

// cachingStreamingRagService 是 StreamAnswerer 的缓存装饰器。
//
// 带 documentIds 过滤的请求直接透传给底层编排，既不查也不写缓存：
// 同一个问题在不同过滤条件下的答案不可互换。
// 其余请求先查语义缓存，命中则逐词回放；未命中则先完整收集底层
// 输出并做输出校验，校验通过才发给用户并异步写入缓存。
type cachingStreamingRagService struct {
	delegate  StreamAnswerer
	cache     CacheService
	guardrail GuardrailService

	tokenDelay         time.Duration
	unsafeFallbackText string

	writeQueue chan cacheWriteJob
}

// NewCachingStreamingRagService 创建缓存装饰器并启动异步写入工作池。
func NewCachingStreamingRagService(
	delegate StreamAnswerer,
	cache CacheService,
	guardrail GuardrailService,
	chatCfg config.ChatConfig,
	guardrailCfg config.GuardrailConfig,
) StreamAnswerer {
	fallback := guardrailCfg.UnsafeFallbackText
	if strings.TrimSpace(fallback) == "" {
		fallback = defaultUnsafeFallbackText
	}

	workers := chatCfg.CacheWriteWorkers
	if workers <= 0 {
		workers = 2
	}
	queueSize := chatCfg.CacheWriteQueue
	if queueSize <= 0 {
		queueSize = 64
	}

	s := &cachingStreamingRagService{
		delegate:           delegate,
		cache:              cache,
		guardrail:          guardrail,
		tokenDelay:         time.Duration(chatCfg.CachedTokenDelayMS) * time.Millisecond,
		unsafeFallbackText: fallback,
		writeQueue:         make(chan cacheWriteJob, queueSize),
	}

	for i := 0; i < workers; i++ {
		go s.cacheWriteWorker()
	}
	return s
}

// ChatStream 实现缓存感知的流式问答。
func (s *cachingStreamingRagService) ChatStream(ctx context.Context, req model.ChatRequest, writer llm.TokenWriter) ([]string, error) {
	// 带文档过滤的请求绕过缓存
	if len(req.DocumentIDs) > 0 {
		log.Infof("[CachingRAG] 请求带文档过滤(%d 个)，绕过缓存", len(req.DocumentIDs))
		return s.delegate.ChatStream(ctx, req, writer)
	}

	if entry, ok := s.cache.Lookup(ctx, req.Question); ok {
		if err := s.replay(ctx, entry.Response, writer); err != nil {
			return nil, err
		}
		return entry.Sources, nil
	}

	var buf tokenBuffer
	sources, err := s.delegate.ChatStream(ctx, req, &buf)
	if err != nil {
		return nil, err
	}

	response := buf.String()

	check := s.guardrail.ValidateOutput(response)
	if !check.Safe {
		log.Warnf("[CachingRAG] 输出被拦截，替换为安全文案, issues=%v", check.Issues)
		if err := writer.WriteToken(s.unsafeFallbackText); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := writer.WriteToken(response); err != nil {
		return nil, err
	}

	// 没有文档上下文的固定回复不进缓存
	if sources != nil {
		s.enqueueCacheWrite(cacheWriteJob{
			question: req.Question,
			response: response,
			sources:  sources,
		})
	}
	return sources, nil
}

// Chat 阻塞式变体，复用流式路径。
func (s *cachingStreamingRagService) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	var buf tokenBuffer
	sources, err := s.ChatStream(ctx, req, &buf)
	if err != nil {
		return nil, err
	}
	return &model.ChatResponse{
		Answer:         buf.String(),
		Sources:        sources,
		ConversationID: req.ConversationID,
	}, nil
}

// replay 将缓存的完整回答按词逐个回放，模拟流式输出的节奏。
func (s *cachingStreamingRagService) replay(ctx context.Context, response string, writer llm.TokenWriter) error {
	for _, token := range splitCachedTokens(response) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.WriteToken(token); err != nil {
			return err
		}
		if s.tokenDelay > 0 {
			time.Sleep(s.tokenDelay)
		}
	}
	return nil
}

// enqueueCacheWrite 将写入任务投递到工作池，队列满时丢弃并记录日志。
func (s *cachingStreamingRagService) enqueueCacheWrite(job cacheWriteJob) {
	select {
	case s.writeQueue <- job:
	default:
		log.Warnf("[CachingRAG] 缓存写入队列已满，丢弃本次写入: %s", job.question)
	}
}

// cacheWriteWorker 消费写入队列。使用独立的后台 context，
// 避免用户断开连接导致缓存写入被取消。
func (s *cachingStreamingRagService) cacheWriteWorker() {
	for job := range s.writeQueue {
		s.cache.Store(context.Background(), job.question, job.response, job.sources)
	}
}

// splitCachedTokens 将文本切分为以空白字符结尾的词元，
// 连续空白会产生单字符词元，拼接后与原文完全一致。
func splitCachedTokens(s string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range s {
		current.WriteRune(r)
		if unicode.IsSpace(r) {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
