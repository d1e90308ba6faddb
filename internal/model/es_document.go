// Package model 定义了与存储结构对应的 Go 结构体。
package model

// EsDocument 代表存储在 Elasticsearch 向量索引中的一个文本分块。
type EsDocument struct {
	ChunkUID     string    `json:"chunk_uid"` // 唯一标识，例如 documentId_chunkIndex
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	ChunkIndex   int       `json:"chunk_index"`
	TextContent  string    `json:"text_content"`
	Vector       []float32 `json:"vector"` // 文本内容的向量表示
	ModelVersion string    `json:"model_version"`
}

// ChunkMatch 是一次向量检索命中的分块及其相似度得分。
type ChunkMatch struct {
	Document EsDocument
	Score    float64
}
