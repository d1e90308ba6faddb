// Package repository 提供了数据访问层的实现。
package repository

import (
	"errors"

	"hr-assistant-go/internal/model"

	"gorm.io/gorm"
)

// ErrDocumentNotFound 表示指定的文档元数据不存在。
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository 定义了对 documents 表的数据操作接口。
type DocumentRepository interface {
	Save(doc *model.Document) error
	FindByID(id string) (*model.Document, error)
	FindAll() ([]*model.Document, error)
	FindDistinctCategories() ([]string, error)
	Delete(id string) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Save 创建或更新一条文档元数据记录。
func (r *documentRepository) Save(doc *model.Document) error {
	return r.db.Save(doc).Error
}

// FindByID 根据 ID 查找文档元数据。
func (r *documentRepository) FindByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindAll 返回全部文档元数据，按上传时间倒序。
func (r *documentRepository) FindAll() ([]*model.Document, error) {
	var docs []*model.Document
	err := r.db.Order("uploaded_at DESC").Find(&docs).Error
	return docs, err
}

// FindDistinctCategories 返回全部非空的文档分类。
func (r *documentRepository) FindDistinctCategories() ([]string, error) {
	var categories []string
	err := r.db.Model(&model.Document{}).
		Where("category <> ''").
		Distinct("category").
		Pluck("category", &categories).Error
	return categories, err
}

// Delete 删除一条文档元数据记录。
func (r *documentRepository) Delete(id string) error {
	return r.db.Delete(&model.Document{}, "id = ?", id).Error
}
