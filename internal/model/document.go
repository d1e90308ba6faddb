package model

import (
	"strings"
	"time"
)

// DocumentType 表示支持的文档类型。
type DocumentType string

const (
	DocumentTypePDF DocumentType = "PDF"
	DocumentTypeTXT DocumentType = "TXT"
)

// DocumentTypeFromFilename 根据文件后缀判断文档类型，不支持的类型返回 false。
func DocumentTypeFromFilename(filename string) (DocumentType, bool) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return DocumentTypePDF, true
	case strings.HasSuffix(lower, ".txt"):
		return DocumentTypeTXT, true
	default:
		return "", false
	}
}

// MimeType 返回文档类型对应的 Content-Type。
func (t DocumentType) MimeType() string {
	if t == DocumentTypePDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// DocumentStatus 表示文档的索引状态。
type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "PENDING"
	DocumentStatusIndexed DocumentStatus = "INDEXED"
	DocumentStatusFailed  DocumentStatus = "FAILED"
)

// Document 对应于数据库中的 documents 表，记录文档元数据。
type Document struct {
	ID           string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Filename     string         `gorm:"type:varchar(255);not null" json:"filename"`
	Type         DocumentType   `gorm:"type:varchar(10);not null" json:"type"`
	Status       DocumentStatus `gorm:"type:varchar(20);not null" json:"status"`
	Size         int64          `gorm:"not null" json:"size"`
	ChunkCount   int            `gorm:"not null;default:0" json:"chunkCount"`
	Category     string         `gorm:"type:varchar(100)" json:"category"`
	ObjectName   string         `gorm:"type:varchar(255);column:object_name" json:"-"`
	ErrorMessage string         `gorm:"type:text;column:error_message" json:"errorMessage,omitempty"`
	UploadedAt   time.Time      `gorm:"column:uploaded_at;autoCreateTime" json:"uploadedAt"`
	IndexedAt    *time.Time     `gorm:"column:indexed_at" json:"indexedAt,omitempty"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// DocumentInfo 是对外暴露的文档元数据 DTO。
type DocumentInfo struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	Type         DocumentType   `json:"type"`
	Status       DocumentStatus `json:"status"`
	Size         int64          `json:"size"`
	ChunkCount   int            `json:"chunkCount"`
	Category     string         `json:"category,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	UploadedAt   time.Time      `json:"uploadedAt"`
	IndexedAt    *time.Time     `json:"indexedAt,omitempty"`
}

// ToDocumentInfo 将数据库实体转换为 DTO。
func (d *Document) ToDocumentInfo() DocumentInfo {
	return DocumentInfo{
		ID:           d.ID,
		Filename:     d.Filename,
		Type:         d.Type,
		Status:       d.Status,
		Size:         d.Size,
		ChunkCount:   d.ChunkCount,
		Category:     d.Category,
		ErrorMessage: d.ErrorMessage,
		UploadedAt:   d.UploadedAt,
		IndexedAt:    d.IndexedAt,
	}
}

// RenameRequest 定义了文档重命名接口的请求体。
type RenameRequest struct {
	NewFilename string `json:"newFilename" binding:"required"`
}

// DocumentChunk 是文本切块后的检索单元，由处理管道生成。
type DocumentChunk struct {
	ID           string `json:"id"`
	DocumentID   string `json:"documentId"`
	DocumentName string `json:"documentName"`
	Index        int    `json:"index"`
	Content      string `json:"content"`
}
