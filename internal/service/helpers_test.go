package service

import (
	"context"
	"strings"
	"sync"

	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/llm"
)

// fakeLLM 是 llm.Client 的测试替身。
type fakeLLM struct {
	structuredResp []byte
	structuredErr  error
	streamTokens   []string
	streamErr      error

	mu         sync.Mutex
	lastPrompt string
}

func (f *fakeLLM) StreamChat(ctx context.Context, prompt string, writer llm.TokenWriter) error {
	f.mu.Lock()
	f.lastPrompt = prompt
	f.mu.Unlock()
	if f.streamErr != nil {
		return f.streamErr
	}
	for _, token := range f.streamTokens {
		if err := writer.WriteToken(token); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLLM) GenerateStructured(ctx context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	f.lastPrompt = prompt
	f.mu.Unlock()
	if f.structuredErr != nil {
		return nil, f.structuredErr
	}
	return f.structuredResp, nil
}

func (f *fakeLLM) prompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrompt
}

// fakeEmbedder 按文本返回预设向量，未配置的文本返回默认向量。
type fakeEmbedder struct {
	vectors       map[string][]float32
	defaultVector []float32
	err           error
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.defaultVector, nil
}

// fakeSearcher 是 VectorSearcher 的测试替身。
type fakeSearcher struct {
	matches []model.ChunkMatch
	err     error

	lastTopK     int
	lastMinScore float64
	lastFilter   []string
}

func (f *fakeSearcher) SearchChunks(ctx context.Context, queryVector []float32, topK int, minScore float64, documentIDs []string) ([]model.ChunkMatch, error) {
	f.lastTopK = topK
	f.lastMinScore = minScore
	f.lastFilter = documentIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

// stubGuardrail 让测试精确控制校验结果。
type stubGuardrail struct {
	validateErr  error
	outputResult *model.OutputGuardrailResult
}

func (g *stubGuardrail) ClassifyQuestion(ctx context.Context, question string) model.GuardrailResult {
	return model.NewGuardrailResult(true, nil, model.ConfidenceHigh)
}

func (g *stubGuardrail) ValidateQuestion(ctx context.Context, question string) error {
	return g.validateErr
}

func (g *stubGuardrail) ValidateOutput(text string) model.OutputGuardrailResult {
	if g.outputResult != nil {
		return *g.outputResult
	}
	return model.SafeOutput()
}

// fakeAnswerer 是 StreamAnswerer 的测试替身，用作缓存装饰器的底层服务。
type fakeAnswerer struct {
	tokens  []string
	sources []string
	err     error

	mu    sync.Mutex
	calls int
}

func (f *fakeAnswerer) ChatStream(ctx context.Context, req model.ChatRequest, writer llm.TokenWriter) ([]string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, token := range f.tokens {
		if err := writer.WriteToken(token); err != nil {
			return nil, err
		}
	}
	return f.sources, nil
}

func (f *fakeAnswerer) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	var buf tokenBuffer
	sources, err := f.ChatStream(ctx, req, &buf)
	if err != nil {
		return nil, err
	}
	return &model.ChatResponse{Answer: buf.String(), Sources: sources, ConversationID: req.ConversationID}, nil
}

func (f *fakeAnswerer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCache 是 CacheService 的测试替身，Store 通过 channel 通知调用。
type fakeCache struct {
	entry  *model.CachedResponse
	stored chan cacheWriteJob

	mu      sync.Mutex
	lookups int
}

func newFakeCache(entry *model.CachedResponse) *fakeCache {
	return &fakeCache{entry: entry, stored: make(chan cacheWriteJob, 8)}
}

func (f *fakeCache) Lookup(ctx context.Context, question string) (*model.CachedResponse, bool) {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()
	if f.entry == nil {
		return nil, false
	}
	return f.entry, true
}

func (f *fakeCache) Store(ctx context.Context, question, response string, sources []string) {
	f.stored <- cacheWriteJob{question: question, response: response, sources: sources}
}

func (f *fakeCache) InvalidateAll(ctx context.Context) {}

func (f *fakeCache) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

// collectWriter 收集全部流式分块。
type collectWriter struct {
	tokens []string
}

func (w *collectWriter) WriteToken(token string) error {
	w.tokens = append(w.tokens, token)
	return nil
}

func (w *collectWriter) String() string {
	return strings.Join(w.tokens, "")
}
