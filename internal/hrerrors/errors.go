// Package hrerrors 定义了助手核心流程的类型化错误。
package hrerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 标识错误类别，决定对外的 HTTP 状态码与提示语。
type ErrorCode string

const (
	CodeDocumentNotFound        ErrorCode = "DOCUMENT_NOT_FOUND"
	CodeDocumentProcessingError ErrorCode = "DOCUMENT_PROCESSING_ERROR"
	CodeEmbeddingError          ErrorCode = "EMBEDDING_ERROR"
	CodeLLMError                ErrorCode = "LLM_ERROR"
	CodeInvalidInput            ErrorCode = "INVALID_INPUT"
	CodeInternalError           ErrorCode = "INTERNAL_ERROR"
)

// HrError 携带错误码、面向用户的提示语以及内部原因。
// Message 是可直接返回给调用方的稳定文案，内部原因只进日志。
type HrError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error 实现 error 接口。
func (e *HrError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 返回内部原因，支持 errors.Is/As。
func (e *HrError) Unwrap() error {
	return e.Err
}

// New 创建一个不带内部原因的 HrError。
func New(code ErrorCode, message string) *HrError {
	return &HrError{Code: code, Message: message}
}

// Wrap 创建一个包装内部原因的 HrError。
func Wrap(code ErrorCode, message string, err error) *HrError {
	return &HrError{Code: code, Message: message, Err: err}
}

// CodeOf 提取错误的错误码，非 HrError 一律视为 INTERNAL_ERROR。
func CodeOf(err error) ErrorCode {
	var he *HrError
	if errors.As(err, &he) {
		return he.Code
	}
	return CodeInternalError
}

// MessageOf 提取面向用户的提示语，非 HrError 返回通用文案。
func MessageOf(err error) string {
	var he *HrError
	if errors.As(err, &he) {
		return he.Message
	}
	return "Une erreur inattendue s'est produite"
}

// HTTPStatus 将错误码映射为 HTTP 状态码。
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeDocumentNotFound:
		return http.StatusNotFound
	case CodeDocumentProcessingError, CodeEmbeddingError, CodeLLMError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
