package model

import "time"

// ErrorInfo 是统一的 HTTP 错误响应体。
type ErrorInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
}
