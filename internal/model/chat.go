package model

// ChatRequest 定义了聊天接口的请求体。
//
//	POST /api/chat
//	{"question": "Combien de jours de congés ai-je ?", "conversationId": "abc-123"}
//
// DocumentIDs 为可选的文档过滤列表；携带时检索只覆盖指定文档，且跳过语义缓存。
type ChatRequest struct {
	Question       string   `json:"question" binding:"required"`
	ConversationID string   `json:"conversationId"`
	DocumentIDs    []string `json:"documentIds"`
}

// ChatResponse 定义了非流式聊天接口的响应体。
type ChatResponse struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversationId"`
}
