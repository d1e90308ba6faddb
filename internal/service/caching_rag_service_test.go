package service

import (
	"context"
	"testing"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCachingRag(delegate StreamAnswerer, cache CacheService) StreamAnswerer {
	return NewCachingStreamingRagService(
		delegate,
		cache,
		&stubGuardrail{},
		config.ChatConfig{CacheWriteWorkers: 1, CacheWriteQueue: 8},
		config.GuardrailConfig{},
	)
}

func waitForStore(t *testing.T, cache *fakeCache) cacheWriteJob {
	t.Helper()
	select {
	case job := <-cache.stored:
		return job
	case <-time.After(2 * time.Second):
		t.Fatal("le cache n'a jamais été écrit")
		return cacheWriteJob{}
	}
}

func assertNoStore(t *testing.T, cache *fakeCache) {
	t.Helper()
	select {
	case job := <-cache.stored:
		t.Fatalf("écriture de cache inattendue: %+v", job)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCachingChatStream_HitReplaysResponse(t *testing.T) {
	cache := newFakeCache(&model.CachedResponse{
		Question: "Combien de jours de congés ?",
		Response: "Vous avez 25 jours de congés payés.",
		Sources:  []string{"conges.pdf"},
	})
	delegate := &fakeAnswerer{tokens: []string{"ne doit pas être appelé"}}
	svc := newTestCachingRag(delegate, cache)

	var w collectWriter
	sources, err := svc.ChatStream(context.Background(), model.ChatRequest{Question: "Combien de jours de congés ?"}, &w)

	require.NoError(t, err)
	assert.Equal(t, []string{"conges.pdf"}, sources)
	assert.Equal(t, "Vous avez 25 jours de congés payés.", w.String())
	// 回放按词切块，保留原始空白
	assert.Greater(t, len(w.tokens), 1)
	assert.Zero(t, delegate.callCount())
}

func TestCachingChatStream_MissDelegatesAndCaches(t *testing.T) {
	cache := newFakeCache(nil)
	delegate := &fakeAnswerer{
		tokens:  []string{"Vous avez ", "25 jours."},
		sources: []string{"conges.pdf"},
	}
	svc := newTestCachingRag(delegate, cache)

	var w collectWriter
	sources, err := svc.ChatStream(context.Background(), model.ChatRequest{Question: "q"}, &w)

	require.NoError(t, err)
	assert.Equal(t, []string{"conges.pdf"}, sources)
	assert.Equal(t, "Vous avez 25 jours.", w.String())

	job := waitForStore(t, cache)
	assert.Equal(t, "q", job.question)
	assert.Equal(t, "Vous avez 25 jours.", job.response)
	assert.Equal(t, []string{"conges.pdf"}, job.sources)
}

func TestCachingChatStream_DocumentFilterBypassesCache(t *testing.T) {
	cache := newFakeCache(&model.CachedResponse{Response: "réponse en cache"})
	delegate := &fakeAnswerer{tokens: []string{"réponse directe"}, sources: []string{"doc.pdf"}}
	svc := newTestCachingRag(delegate, cache)

	var w collectWriter
	sources, err := svc.ChatStream(context.Background(), model.ChatRequest{
		Question:    "q",
		DocumentIDs: []string{"doc-1"},
	}, &w)

	require.NoError(t, err)
	assert.Equal(t, 1, delegate.callCount())
	assert.Equal(t, "réponse directe", w.String())
	assert.Equal(t, []string{"doc.pdf"}, sources)
	assert.Zero(t, cache.lookupCount())
	assertNoStore(t, cache)
}

func TestCachingChatStream_UnsafeOutputIsReplaced(t *testing.T) {
	cache := newFakeCache(nil)
	delegate := &fakeAnswerer{
		tokens:  []string{"Contactez jean@rh.fr"},
		sources: []string{"doc.pdf"},
	}
	unsafe := model.UnsafeOutput([]string{"PII_DETECTED: EMAIL"})
	svc := NewCachingStreamingRagService(
		delegate,
		cache,
		&stubGuardrail{outputResult: &unsafe},
		config.ChatConfig{CacheWriteWorkers: 1, CacheWriteQueue: 8},
		config.GuardrailConfig{},
	)

	var w collectWriter
	sources, err := svc.ChatStream(context.Background(), model.ChatRequest{Question: "q"}, &w)

	require.NoError(t, err)
	assert.Nil(t, sources)
	assert.NotContains(t, w.String(), "jean@rh.fr")
	assert.Contains(t, w.String(), "service RH")
	assertNoStore(t, cache)
}

func TestCachingChatStream_NoContextAnswerIsNotCached(t *testing.T) {
	cache := newFakeCache(nil)
	// sources 为 nil 表示回答没有基于文档上下文
	delegate := &fakeAnswerer{tokens: []string{"Je n'ai pas trouvé d'information pertinente."}}
	svc := newTestCachingRag(delegate, cache)

	var w collectWriter
	sources, err := svc.ChatStream(context.Background(), model.ChatRequest{Question: "q"}, &w)

	require.NoError(t, err)
	assert.Nil(t, sources)
	assert.Equal(t, "Je n'ai pas trouvé d'information pertinente.", w.String())
	assertNoStore(t, cache)
}

func TestCachingChat_Blocking(t *testing.T) {
	cache := newFakeCache(&model.CachedResponse{
		Response: "Réponse en cache.",
		Sources:  []string{"doc.pdf"},
	})
	svc := newTestCachingRag(&fakeAnswerer{}, cache)

	resp, err := svc.Chat(context.Background(), model.ChatRequest{Question: "q", ConversationID: "c1"})

	require.NoError(t, err)
	assert.Equal(t, "Réponse en cache.", resp.Answer)
	assert.Equal(t, []string{"doc.pdf"}, resp.Sources)
	assert.Equal(t, "c1", resp.ConversationID)
}

func TestSplitCachedTokens(t *testing.T) {
	text := "Bonjour  le\nmonde !"

	tokens := splitCachedTokens(text)

	// 拼接后与原文完全一致
	var rebuilt string
	for _, token := range tokens {
		rebuilt += token
	}
	assert.Equal(t, text, rebuilt)
	assert.Equal(t, []string{"Bonjour ", " ", "le\n", "monde ", "!"}, tokens)
}

func TestSplitCachedTokens_Empty(t *testing.T) {
	assert.Empty(t, splitCachedTokens(""))
}
