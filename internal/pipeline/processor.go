// Package pipeline 实现了文档的异步索引处理管道。
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/internal/service"
	"hr-assistant-go/pkg/embedding"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/storage"
	"hr-assistant-go/pkg/tasks"
	"hr-assistant-go/pkg/tika"
)

// ChunkIndexStore 抽象了分块索引的写入端，由 es.Client 实现。
type ChunkIndexStore interface {
	IndexChunk(ctx context.Context, doc model.EsDocument) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// Processor 消费索引任务：下载原始文件、提取文本、切块、
// 向量化并写入检索索引，最后更新文档状态。
type Processor struct {
	repo       repository.DocumentRepository
	indexStore ChunkIndexStore
	embedder   embedding.Client
	tikaClient *tika.Client
	cache      service.CacheService

	bucketName   string
	chunkSize    int
	chunkOverlap int
	modelVersion string
}

// NewProcessor 创建一个新的索引处理器。
func NewProcessor(
	repo repository.DocumentRepository,
	indexStore ChunkIndexStore,
	embedder embedding.Client,
	tikaClient *tika.Client,
	cache service.CacheService,
	minioCfg config.MinIOConfig,
	ragCfg config.RAGConfig,
	embeddingCfg config.EmbeddingConfig,
) *Processor {
	chunkSize := ragCfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 500
	}
	chunkOverlap := ragCfg.ChunkOverlap
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Processor{
		repo:         repo,
		indexStore:   indexStore,
		embedder:     embedder,
		tikaClient:   tikaClient,
		cache:        cache,
		bucketName:   minioCfg.BucketName,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		modelVersion: embeddingCfg.Model,
	}
}

// Process 处理单个索引任务。任何阶段失败都会把文档标记为 FAILED 并返回错误，
// 由消费者决定是否重试；整个流程可安全重入。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentIndexTask) error {
	doc, err := p.repo.FindByID(task.DocumentID)
	if err == repository.ErrDocumentNotFound {
		// 文档已被删除，任务作废
		log.Warnf("[Pipeline] 文档元数据不存在，跳过索引任务: documentId=%s", task.DocumentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load document metadata: %w", err)
	}

	if err := p.index(ctx, doc, task); err != nil {
		p.markFailed(doc, err)
		return err
	}
	return nil
}

// index 执行实际的索引流程。
func (p *Processor) index(ctx context.Context, doc *model.Document, task tasks.DocumentIndexTask) error {
	// 重新索引前清掉旧分块，保证幂等
	log.Infof("[Pipeline] 步骤1: 清理旧分块: documentId=%s", doc.ID)
	if err := p.indexStore.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to clear existing chunks: %w", err)
	}

	log.Infof("[Pipeline] 步骤2: 下载原始文件: objectName=%s", task.ObjectName)
	object, err := storage.GetObject(ctx, p.bucketName, task.ObjectName)
	if err != nil {
		return fmt.Errorf("failed to download object: %w", err)
	}
	defer object.Close()

	log.Infof("[Pipeline] 步骤3: 提取文本: filename=%s, type=%s", doc.Filename, doc.Type)
	text, err := p.extractText(object, doc)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("document contains no extractable text")
	}

	chunks := ChunkText(text, p.chunkSize, p.chunkOverlap)
	log.Infof("[Pipeline] 步骤4: 文本切块完成, 共 %d 块 (size=%d, overlap=%d)",
		len(chunks), p.chunkSize, p.chunkOverlap)

	for i, chunk := range chunks {
		vector, err := p.embedder.CreateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		esDoc := model.EsDocument{
			ChunkUID:     fmt.Sprintf("%s-%d", doc.ID, i),
			DocumentID:   doc.ID,
			DocumentName: doc.Filename,
			ChunkIndex:   i,
			TextContent:  chunk,
			Vector:       vector,
			ModelVersion: p.modelVersion,
		}
		if err := p.indexStore.IndexChunk(ctx, esDoc); err != nil {
			return fmt.Errorf("failed to index chunk %d: %w", i, err)
		}
	}

	now := time.Now()
	doc.Status = model.DocumentStatusIndexed
	doc.ChunkCount = len(chunks)
	doc.ErrorMessage = ""
	doc.IndexedAt = &now
	if err := p.repo.Save(doc); err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}

	// 新文档入库后，旧缓存的回答可能已不完整
	p.cache.InvalidateAll(ctx)

	log.Infof("[Pipeline] 步骤5: 索引完成: documentId=%s, chunks=%d", doc.ID, len(chunks))
	return nil
}

// extractText 根据文档类型提取纯文本，TXT 直接读取，其余类型走 Tika。
func (p *Processor) extractText(reader io.Reader, doc *model.Document) (string, error) {
	if doc.Type == model.DocumentTypeTXT {
		content, err := io.ReadAll(reader)
		if err != nil {
			return "", err
		}
		return string(content), nil
	}
	return p.tikaClient.ExtractText(reader, doc.Filename)
}

// markFailed 将文档标记为索引失败并记录原因。
func (p *Processor) markFailed(doc *model.Document, cause error) {
	doc.Status = model.DocumentStatusFailed
	doc.ErrorMessage = cause.Error()
	if err := p.repo.Save(doc); err != nil {
		log.Errorf("[Pipeline] 更新失败状态出错: documentId=%s, %v", doc.ID, err)
	}
}

// ChunkText 将文本按固定窗口切块，相邻块之间保留 overlap 个字符的重叠。
// 按 rune 计数，多字节字符不会被截断。overlap 必须小于 size。
func ChunkText(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{string(runes)}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
