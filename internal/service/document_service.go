package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/hrerrors"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/pkg/log"
	"hr-assistant-go/pkg/storage"
	"hr-assistant-go/pkg/tasks"

	"github.com/google/uuid"
)

const (
	msgDocumentNotFound   = "Document non trouvé"
	msgUnsupportedType    = "Type de fichier non supporté. Seuls les formats PDF et TXT sont acceptés."
	msgFileTooLarge       = "Le fichier dépasse la taille maximale autorisée de %d Mo."
	msgEmptyFilename      = "Le nom du fichier ne peut pas être vide"
	msgUploadFailed       = "Le téléversement du document a échoué. Veuillez réessayer plus tard."
	msgDeleteFailed       = "La suppression du document a échoué. Veuillez réessayer plus tard."
	msgMetadataUnavailable = "Le service de gestion des documents est temporairement indisponible."
)

// presignedURLExpiry 是下载链接的有效期。
const presignedURLExpiry = 15 * time.Minute

// IndexTaskProducer 将索引任务投递到消息队列，由 kafka 包实现。
type IndexTaskProducer func(task tasks.DocumentIndexTask) error

// ChunkIndexDeleter 删除某个文档在向量索引中的全部分块，由 es.Client 实现。
type ChunkIndexDeleter interface {
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// DocumentService 定义了文档生命周期管理接口。
type DocumentService interface {
	// Upload 校验并保存上传的文件，写入元数据后投递异步索引任务。
	Upload(ctx context.Context, filename string, category string, reader io.Reader, size int64) (model.DocumentInfo, error)
	// List 返回全部文档信息，按上传时间倒序。
	List(ctx context.Context) ([]model.DocumentInfo, error)
	// Get 返回单个文档信息。
	Get(ctx context.Context, id string) (model.DocumentInfo, error)
	// Categories 返回全部已使用的文档分类。
	Categories(ctx context.Context) ([]string, error)
	// Rename 修改文档显示名，不触发重新索引。
	Rename(ctx context.Context, id string, newFilename string) (model.DocumentInfo, error)
	// Delete 删除文档的索引分块、原始文件与元数据，并清空回答缓存。
	Delete(ctx context.Context, id string) error
	// DownloadURL 为文档原始文件生成带有效期的下载链接。
	DownloadURL(ctx context.Context, id string) (string, error)
}

type documentService struct {
	repo       repository.DocumentRepository
	indexStore ChunkIndexDeleter
	cache      CacheService
	produce    IndexTaskProducer

	bucketName  string
	maxSizeByte int64
	maxSizeMB   int
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	repo repository.DocumentRepository,
	indexStore ChunkIndexDeleter,
	cache CacheService,
	produce IndexTaskProducer,
	minioCfg config.MinIOConfig,
	docCfg config.DocumentsConfig,
) DocumentService {
	maxSizeMB := docCfg.MaxSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &documentService{
		repo:        repo,
		indexStore:  indexStore,
		cache:       cache,
		produce:     produce,
		bucketName:  minioCfg.BucketName,
		maxSizeByte: int64(maxSizeMB) * 1024 * 1024,
		maxSizeMB:   maxSizeMB,
	}
}

// Upload 处理文档上传的完整流程。
func (s *documentService) Upload(ctx context.Context, filename string, category string, reader io.Reader, size int64) (model.DocumentInfo, error) {
	if strings.TrimSpace(filename) == "" {
		return model.DocumentInfo{}, hrerrors.New(hrerrors.CodeInvalidInput, msgEmptyFilename)
	}

	docType, ok := model.DocumentTypeFromFilename(filename)
	if !ok {
		return model.DocumentInfo{}, hrerrors.New(hrerrors.CodeInvalidInput, msgUnsupportedType)
	}

	if size <= 0 || size > s.maxSizeByte {
		return model.DocumentInfo{}, hrerrors.New(hrerrors.CodeInvalidInput, fmt.Sprintf(msgFileTooLarge, s.maxSizeMB))
	}

	id := uuid.New().String()
	objectName := id + filepath.Ext(filename)

	log.Infof("[Document] 步骤1: 上传原始文件到对象存储: id=%s, filename=%s, size=%d", id, filename, size)
	if err := storage.PutObject(ctx, s.bucketName, objectName, reader, size, docType.MimeType()); err != nil {
		log.Errorf("[Document] 上传文件到对象存储失败: %v", err)
		return model.DocumentInfo{}, hrerrors.Wrap(hrerrors.CodeDocumentProcessingError, msgUploadFailed, err)
	}

	doc := &model.Document{
		ID:         id,
		Filename:   filename,
		Type:       docType,
		Status:     model.DocumentStatusPending,
		Size:       size,
		Category:   category,
		ObjectName: objectName,
	}

	log.Infof("[Document] 步骤2: 保存文档元数据: id=%s", id)
	if err := s.repo.Save(doc); err != nil {
		log.Errorf("[Document] 保存文档元数据失败: %v", err)
		// 元数据失败时回收已上传的对象，避免孤儿文件
		if rmErr := storage.RemoveObject(ctx, s.bucketName, objectName); rmErr != nil {
			log.Errorf("[Document] 回收对象失败: %v", rmErr)
		}
		return model.DocumentInfo{}, hrerrors.Wrap(hrerrors.CodeDocumentProcessingError, msgUploadFailed, err)
	}

	log.Infof("[Document] 步骤3: 投递异步索引任务: id=%s", id)
	task := tasks.DocumentIndexTask{
		DocumentID: id,
		ObjectName: objectName,
		FileName:   filename,
		Category:   category,
	}
	if err := s.produce(task); err != nil {
		log.Errorf("[Document] 投递索引任务失败: %v", err)
		doc.Status = model.DocumentStatusFailed
		doc.ErrorMessage = "failed to enqueue index task"
		if saveErr := s.repo.Save(doc); saveErr != nil {
			log.Errorf("[Document] 更新文档状态失败: %v", saveErr)
		}
		return model.DocumentInfo{}, hrerrors.Wrap(hrerrors.CodeDocumentProcessingError, msgUploadFailed, err)
	}

	log.Infof("[Document] 文档上传完成，等待索引: id=%s", id)
	return doc.ToDocumentInfo(), nil
}

// List 返回全部文档信息。
func (s *documentService) List(ctx context.Context) ([]model.DocumentInfo, error) {
	docs, err := s.repo.FindAll()
	if err != nil {
		log.Errorf("[Document] 查询文档列表失败: %v", err)
		return nil, hrerrors.Wrap(hrerrors.CodeInternalError, msgMetadataUnavailable, err)
	}

	infos := make([]model.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, doc.ToDocumentInfo())
	}
	return infos, nil
}

// Get 返回单个文档信息。
func (s *documentService) Get(ctx context.Context, id string) (model.DocumentInfo, error) {
	doc, err := s.findDocument(id)
	if err != nil {
		return model.DocumentInfo{}, err
	}
	return doc.ToDocumentInfo(), nil
}

// Categories 返回全部非空文档分类。
func (s *documentService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.FindDistinctCategories()
	if err != nil {
		log.Errorf("[Document] 查询文档分类失败: %v", err)
		return nil, hrerrors.Wrap(hrerrors.CodeInternalError, msgMetadataUnavailable, err)
	}
	return categories, nil
}

// Rename 修改文档显示名。
func (s *documentService) Rename(ctx context.Context, id string, newFilename string) (model.DocumentInfo, error) {
	if strings.TrimSpace(newFilename) == "" {
		return model.DocumentInfo{}, hrerrors.New(hrerrors.CodeInvalidInput, msgEmptyFilename)
	}

	doc, err := s.findDocument(id)
	if err != nil {
		return model.DocumentInfo{}, err
	}

	doc.Filename = newFilename
	if err := s.repo.Save(doc); err != nil {
		log.Errorf("[Document] 重命名文档失败: %v", err)
		return model.DocumentInfo{}, hrerrors.Wrap(hrerrors.CodeInternalError, msgMetadataUnavailable, err)
	}

	log.Infof("[Document] 文档已重命名: id=%s, newFilename=%s", id, newFilename)
	return doc.ToDocumentInfo(), nil
}

// Delete 删除文档的全部痕迹并清空回答缓存。
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.findDocument(id)
	if err != nil {
		return err
	}

	log.Infof("[Document] 步骤1: 删除向量索引分块: id=%s", id)
	if err := s.indexStore.DeleteByDocumentID(ctx, id); err != nil {
		log.Errorf("[Document] 删除向量索引分块失败: %v", err)
		return hrerrors.Wrap(hrerrors.CodeDocumentProcessingError, msgDeleteFailed, err)
	}

	log.Infof("[Document] 步骤2: 删除对象存储中的原始文件: id=%s", id)
	if err := storage.RemoveObject(ctx, s.bucketName, doc.ObjectName); err != nil {
		log.Errorf("[Document] 删除原始文件失败: %v", err)
		return hrerrors.Wrap(hrerrors.CodeDocumentProcessingError, msgDeleteFailed, err)
	}

	log.Infof("[Document] 步骤3: 删除文档元数据: id=%s", id)
	if err := s.repo.Delete(id); err != nil {
		log.Errorf("[Document] 删除文档元数据失败: %v", err)
		return hrerrors.Wrap(hrerrors.CodeInternalError, msgDeleteFailed, err)
	}

	// 已缓存的回答可能引用了被删除的文档
	s.cache.InvalidateAll(ctx)

	log.Infof("[Document] 文档已删除: id=%s, filename=%s", id, doc.Filename)
	return nil
}

// DownloadURL 生成文档原始文件的预签名下载链接。
func (s *documentService) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.findDocument(id)
	if err != nil {
		return "", err
	}

	url, err := storage.GetPresignedURL(s.bucketName, doc.ObjectName, presignedURLExpiry)
	if err != nil {
		return "", hrerrors.Wrap(hrerrors.CodeInternalError, msgMetadataUnavailable, err)
	}
	return url, nil
}

// findDocument 查找文档元数据并统一映射未找到错误。
func (s *documentService) findDocument(id string) (*model.Document, error) {
	doc, err := s.repo.FindByID(id)
	if err == repository.ErrDocumentNotFound {
		return nil, hrerrors.New(hrerrors.CodeDocumentNotFound, msgDocumentNotFound)
	}
	if err != nil {
		log.Errorf("[Document] 查询文档元数据失败: %v", err)
		return nil, hrerrors.Wrap(hrerrors.CodeInternalError, msgMetadataUnavailable, err)
	}
	return doc, nil
}
