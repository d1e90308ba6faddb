// Package tasks 定义了发送到 Kafka 的任务结构。
package tasks

// DocumentIndexTask 代表一次文档索引作业的数据结构。
type DocumentIndexTask struct {
	DocumentID string `json:"document_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
	Category   string `json:"category"`
}
