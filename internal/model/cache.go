package model

import "time"

// CachedResponse 代表存储在 Redis 中的一条语义缓存条目。
// 条目写入后不可变，靠 TTL 过期或全量失效清除。
type CachedResponse struct {
	Question          string    `json:"question"`
	QuestionEmbedding []float32 `json:"questionEmbedding"`
	Response          string    `json:"response"`
	Sources           []string  `json:"sources"`
	CachedAt          time.Time `json:"cachedAt"`
}
