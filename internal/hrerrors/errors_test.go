package hrerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfAndMessageOf(t *testing.T) {
	err := New(CodeInvalidInput, "La question ne peut pas être vide")
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	assert.Equal(t, "La question ne peut pas être vide", MessageOf(err))

	// 包装后依然可以提取
	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, CodeInvalidInput, CodeOf(wrapped))

	// 非类型化错误视为内部错误
	plain := errors.New("boom")
	assert.Equal(t, CodeInternalError, CodeOf(plain))
	assert.Equal(t, "Une erreur inattendue s'est produite", MessageOf(plain))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeLLMError, "Le service de génération de réponses est temporairement indisponible. Veuillez réessayer plus tard.", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "LLM_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInvalidInput))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeDocumentNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(CodeDocumentProcessingError))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(CodeEmbeddingError))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(CodeLLMError))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeInternalError))
}
