package service

import (
	"context"
	"strings"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/hrerrors"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/embedding"
	"hr-assistant-go/pkg/llm"
	"hr-assistant-go/pkg/log"
)

// 检索不到上下文时的默认回复。
const defaultNoResultText = "Je n'ai pas trouvé d'information pertinente dans les documents disponibles pour répondre à votre question. Veuillez reformuler votre question ou contacter le service RH."

// 默认的生成提示词模板。
const defaultPromptTemplate = `Tu es un assistant RH interne. Réponds à la question de l'employé en te basant UNIQUEMENT sur les extraits de documents ci-dessous.
Si les documents ne contiennent pas la réponse, dis-le clairement. Ne mentionne jamais d'informations personnelles.

Documents:
{{documents}}

Question: {{question}}

Réponse:`

const (
	msgEmbeddingUnavailable = "Le service d'analyse de la question est temporairement indisponible. Veuillez réessayer plus tard."
	msgSearchUnavailable    = "Le service de recherche documentaire est temporairement indisponible. Veuillez réessayer plus tard."
	msgLLMUnavailable       = "Le service de génération de réponses est temporairement indisponible. Veuillez réessayer plus tard."
)

// VectorSearcher 抽象了向量检索后端，由 es.Client 实现。
type VectorSearcher interface {
	SearchChunks(ctx context.Context, queryVector []float32, topK int, minScore float64, documentIDs []string) ([]model.ChunkMatch, error)
}

// StreamAnswerer 是流式问答的统一入口，缓存装饰器与底层 RAG 编排都实现它。
//
// ChatStream 返回本次回答引用的去重来源列表。返回 nil 来源表示
// 本次回答没有基于任何文档上下文（例如检索为空时的固定回复），
// 这类回答不应进入缓存。
type StreamAnswerer interface {
	ChatStream(ctx context.Context, req model.ChatRequest, writer llm.TokenWriter) ([]string, error)
	// Chat 是阻塞式变体，内部完整收集流式输出后一次性返回。
	Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
}

// streamingRagService 实现了完整的检索增强生成编排：
// 校验 -> 向量化 -> 检索 -> 构建提示词 -> 流式生成 -> 追加来源。
type streamingRagService struct {
	guardrail GuardrailService
	embedder  embedding.Client
	searcher  VectorSearcher
	llmClient llm.Client

	maxResults     int
	minScore       float64
	promptTemplate string
	noResultText   string
}

// NewStreamingRagService 创建底层的流式 RAG 编排服务。
func NewStreamingRagService(
	guardrail GuardrailService,
	embedder embedding.Client,
	searcher VectorSearcher,
	llmClient llm.Client,
	cfg config.RAGConfig,
) StreamAnswerer {
	promptTemplate := cfg.PromptTemplate
	if strings.TrimSpace(promptTemplate) == "" {
		promptTemplate = defaultPromptTemplate
	}
	noResultText := cfg.NoResultText
	if strings.TrimSpace(noResultText) == "" {
		noResultText = defaultNoResultText
	}
	return &streamingRagService{
		guardrail:      guardrail,
		embedder:       embedder,
		searcher:       searcher,
		llmClient:      llmClient,
		maxResults:     cfg.MaxResults,
		minScore:       cfg.MinScore,
		promptTemplate: promptTemplate,
		noResultText:   noResultText,
	}
}

// ChatStream 执行一次完整的流式问答。
func (s *streamingRagService) ChatStream(ctx context.Context, req model.ChatRequest, writer llm.TokenWriter) ([]string, error) {
	if err := s.guardrail.ValidateQuestion(ctx, req.Question); err != nil {
		return nil, err
	}

	log.Infof("[RAG] 步骤1: 为问题生成向量: %s", req.Question)
	queryVector, err := s.embedder.CreateEmbedding(ctx, req.Question)
	if err != nil {
		log.Errorf("[RAG] 生成问题向量失败: %v", err)
		return nil, hrerrors.Wrap(hrerrors.CodeEmbeddingError, msgEmbeddingUnavailable, err)
	}

	log.Infof("[RAG] 步骤2: 检索相关文档分块, topK=%d, minScore=%.2f, filter=%v",
		s.maxResults, s.minScore, req.DocumentIDs)
	matches, err := s.searcher.SearchChunks(ctx, queryVector, s.maxResults, s.minScore, req.DocumentIDs)
	if err != nil {
		log.Errorf("[RAG] 向量检索失败: %v", err)
		return nil, hrerrors.Wrap(hrerrors.CodeEmbeddingError, msgSearchUnavailable, err)
	}

	if len(matches) == 0 {
		log.Infof("[RAG] 未检索到相关内容，返回固定回复")
		if err := writer.WriteToken(s.noResultText); err != nil {
			return nil, err
		}
		return nil, nil
	}

	log.Infof("[RAG] 步骤3: 基于 %d 个分块构建提示词", len(matches))
	prompt := s.buildPrompt(req.Question, matches)

	log.Infof("[RAG] 步骤4: 开始流式生成回答")
	if err := s.llmClient.StreamChat(ctx, prompt, writer); err != nil {
		log.Errorf("[RAG] 流式生成失败: %v", err)
		return nil, hrerrors.Wrap(hrerrors.CodeLLMError, msgLLMUnavailable, err)
	}

	sources := extractSources(matches)
	if err := writer.WriteToken(formatSources(sources)); err != nil {
		return nil, err
	}

	log.Infof("[RAG] 步骤5: 回答生成完成, sources=%v", sources)
	return sources, nil
}

// Chat 阻塞式问答，收集完整流式输出后返回。
func (s *streamingRagService) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
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

// buildContext 将检索到的分块拼接为提示词中的文档上下文。
func (s *streamingRagService) buildContext(matches []model.ChunkMatch) string {
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, "[Source: "+m.Document.DocumentName+"]\n"+m.Document.TextContent)
	}
	return strings.Join(blocks, "\n\n")
}

// buildPrompt 将上下文与问题填入模板。
func (s *streamingRagService) buildPrompt(question string, matches []model.ChunkMatch) string {
	prompt := strings.ReplaceAll(s.promptTemplate, "{{documents}}", s.buildContext(matches))
	return strings.ReplaceAll(prompt, "{{question}}", question)
}

// extractSources 按出现顺序提取去重后的文档名。
func extractSources(matches []model.ChunkMatch) []string {
	seen := make(map[string]struct{}, len(matches))
	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m.Document.DocumentName
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, name)
	}
	return sources
}

// formatSources 渲染追加在回答末尾的来源列表。
func formatSources(sources []string) string {
	var sb strings.Builder
	sb.WriteString("\n\n\n\n**Sources:**\n")
	for _, src := range sources {
		sb.WriteString("- " + src + "\n")
	}
	return sb.String()
}

// tokenBuffer 是收集流式输出的内存实现。
type tokenBuffer struct {
	sb strings.Builder
}

func (b *tokenBuffer) WriteToken(token string) error {
	b.sb.WriteString(token)
	return nil
}

func (b *tokenBuffer) String() string {
	return b.sb.String()
}
