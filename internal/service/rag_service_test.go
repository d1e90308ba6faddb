package service

import (
	"context"
	"errors"
	"testing"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/hrerrors"
	"hr-assistant-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkMatch(docName, content string) model.ChunkMatch {
	return model.ChunkMatch{
		Document: model.EsDocument{
			DocumentName: docName,
			TextContent:  content,
		},
		Score: 0.9,
	}
}

func newTestRag(llmClient *fakeLLM, searcher *fakeSearcher) StreamAnswerer {
	return NewStreamingRagService(
		&stubGuardrail{},
		&fakeEmbedder{defaultVector: []float32{1, 0, 0}},
		searcher,
		llmClient,
		config.RAGConfig{MaxResults: 5, MinScore: 0.3},
	)
}

func TestChatStream_BuildsPromptFromChunks(t *testing.T) {
	llmClient := &fakeLLM{streamTokens: []string{"Vous avez ", "25 jours."}}
	searcher := &fakeSearcher{matches: []model.ChunkMatch{
		chunkMatch("conges.pdf", "Les salariés ont droit à 25 jours de congés."),
		chunkMatch("reglement.pdf", "Les demandes se font via l'intranet."),
	}}
	rag := newTestRag(llmClient, searcher)

	var w collectWriter
	sources, err := rag.ChatStream(context.Background(), model.ChatRequest{Question: "Combien de jours de congés ?"}, &w)

	require.NoError(t, err)
	assert.Equal(t, []string{"conges.pdf", "reglement.pdf"}, sources)

	prompt := llmClient.prompt()
	assert.Contains(t, prompt, "[Source: conges.pdf]\nLes salariés ont droit à 25 jours de congés.")
	assert.Contains(t, prompt, "[Source: reglement.pdf]")
	assert.Contains(t, prompt, "Combien de jours de congés ?")
	assert.NotContains(t, prompt, "{{documents}}")
	assert.NotContains(t, prompt, "{{question}}")
}

func TestChatStream_AppendsDistinctSources(t *testing.T) {
	llmClient := &fakeLLM{streamTokens: []string{"Réponse."}}
	searcher := &fakeSearcher{matches: []model.ChunkMatch{
		chunkMatch("conges.pdf", "bloc 1"),
		chunkMatch("conges.pdf", "bloc 2"),
		chunkMatch("paie.pdf", "bloc 3"),
	}}
	rag := newTestRag(llmClient, searcher)

	var w collectWriter
	sources, err := rag.ChatStream(context.Background(), model.ChatRequest{Question: "q"}, &w)

	require.NoError(t, err)
	assert.Equal(t, []string{"conges.pdf", "paie.pdf"}, sources)
	assert.Equal(t, "Réponse.\n\n\n\n**Sources:**\n- conges.pdf\n- paie.pdf\n", w.String())
}

func TestChatStream_NoMatchesReturnsFixedText(t *testing.T) {
	llmClient := &fakeLLM{}
	searcher := &fakeSearcher{}
	rag := newTestRag(llmClient, searcher)

	var w collectWriter
	sources, err := rag.ChatStream(context.Background(), model.ChatRequest{Question: "q"}, &w)

	require.NoError(t, err)
	assert.Nil(t, sources)
	assert.Contains(t, w.String(), "Je n'ai pas trouvé d'information pertinente")
	// 没有上下文时不会调用生成模型
	assert.Empty(t, llmClient.prompt())
}

func TestChatStream_ValidationErrorStopsPipeline(t *testing.T) {
	validateErr := hrerrors.New(hrerrors.CodeInvalidInput, "La question ne peut pas être vide")
	rag := NewStreamingRagService(
		&stubGuardrail{validateErr: validateErr},
		&fakeEmbedder{defaultVector: []float32{1}},
		&fakeSearcher{},
		&fakeLLM{},
		config.RAGConfig{},
	)

	var w collectWriter
	_, err := rag.ChatStream(context.Background(), model.ChatRequest{Question: ""}, &w)

	require.Error(t, err)
	assert.Equal(t, hrerrors.CodeInvalidInput, hrerrors.CodeOf(err))
	assert.Empty(t, w.tokens)
}

func TestChatStream_EmbeddingError(t *testing.T) {
	rag := NewStreamingRagService(
		&stubGuardrail{},
		&fakeEmbedder{err: errors.New("embedding api down")},
		&fakeSearcher{},
		&fakeLLM{},
		config.RAGConfig{},
	)

	var w collectWriter
	_, err := rag.ChatStream(context.Background(), model.ChatRequest{Question: "q"}, &w)

	require.Error(t, err)
	assert.Equal(t, hrerrors.CodeEmbeddingError, hrerrors.CodeOf(err))
}

func TestChatStream_LLMError(t *testing.T) {
	llmClient := &fakeLLM{streamErr: errors.New("llm down")}
	searcher := &fakeSearcher{matches: []model.ChunkMatch{chunkMatch("doc.pdf", "contenu")}}
	rag := newTestRag(llmClient, searcher)

	var w collectWriter
	_, err := rag.ChatStream(context.Background(), model.ChatRequest{Question: "q"}, &w)

	require.Error(t, err)
	assert.Equal(t, hrerrors.CodeLLMError, hrerrors.CodeOf(err))
	assert.Equal(t, "Le service de génération de réponses est temporairement indisponible. Veuillez réessayer plus tard.", hrerrors.MessageOf(err))
}

func TestChatStream_ForwardsDocumentFilter(t *testing.T) {
	llmClient := &fakeLLM{streamTokens: []string{"ok"}}
	searcher := &fakeSearcher{matches: []model.ChunkMatch{chunkMatch("doc.pdf", "contenu")}}
	rag := newTestRag(llmClient, searcher)

	var w collectWriter
	_, err := rag.ChatStream(context.Background(), model.ChatRequest{
		Question:    "q",
		DocumentIDs: []string{"doc-1", "doc-2"},
	}, &w)

	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1", "doc-2"}, searcher.lastFilter)
	assert.Equal(t, 5, searcher.lastTopK)
	assert.InDelta(t, 0.3, searcher.lastMinScore, 1e-9)
}

func TestChat_CollectsFullAnswer(t *testing.T) {
	llmClient := &fakeLLM{streamTokens: []string{"Vous avez ", "25 jours."}}
	searcher := &fakeSearcher{matches: []model.ChunkMatch{chunkMatch("conges.pdf", "contenu")}}
	rag := newTestRag(llmClient, searcher)

	resp, err := rag.Chat(context.Background(), model.ChatRequest{Question: "q", ConversationID: "conv-1"})

	require.NoError(t, err)
	assert.Equal(t, "Vous avez 25 jours.\n\n\n\n**Sources:**\n- conges.pdf\n", resp.Answer)
	assert.Equal(t, []string{"conges.pdf"}, resp.Sources)
	assert.Equal(t, "conv-1", resp.ConversationID)
}
