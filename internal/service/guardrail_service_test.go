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

func newTestGuardrail(llmClient *fakeLLM) GuardrailService {
	return NewGuardrailService(llmClient, config.GuardrailConfig{})
}

func TestClassifyQuestion_UsesLLMResult(t *testing.T) {
	llmClient := &fakeLLM{
		structuredResp: []byte(`{"hrRelated": true, "category": "CONGES_ABSENCES", "confidence": "HIGH"}`),
	}
	g := newTestGuardrail(llmClient)

	result := g.ClassifyQuestion(context.Background(), "Combien de jours de congés ai-je ?")

	assert.True(t, result.HRRelated)
	require.NotNil(t, result.Category)
	assert.Equal(t, model.CategoryCongesAbsences, *result.Category)
	assert.Equal(t, model.ConfidenceHigh, result.Confidence)
	assert.Contains(t, llmClient.prompt(), "Combien de jours de congés ai-je ?")
}

func TestClassifyQuestion_OffTopicHasNoCategory(t *testing.T) {
	llmClient := &fakeLLM{
		structuredResp: []byte(`{"hrRelated": false, "category": "GENERAL_RH", "confidence": "HIGH"}`),
	}
	g := newTestGuardrail(llmClient)

	result := g.ClassifyQuestion(context.Background(), "Quelle est la capitale de la France ?")

	assert.False(t, result.HRRelated)
	assert.Nil(t, result.Category)
}

func TestClassifyQuestion_UnknownCategoryFallsBackToGeneral(t *testing.T) {
	llmClient := &fakeLLM{
		structuredResp: []byte(`{"hrRelated": true, "category": "SOMETHING_ELSE", "confidence": "LOW"}`),
	}
	g := newTestGuardrail(llmClient)

	result := g.ClassifyQuestion(context.Background(), "Une question RH")

	require.NotNil(t, result.Category)
	assert.Equal(t, model.CategoryGeneralRH, *result.Category)
	assert.Equal(t, model.ConfidenceLow, result.Confidence)
}

func TestClassifyQuestion_KeywordFallbackOnLLMFailure(t *testing.T) {
	llmClient := &fakeLLM{structuredErr: errors.New("llm indisponible")}
	g := newTestGuardrail(llmClient)

	// HR 问题不含离题关键词，兜底放行
	result := g.ClassifyQuestion(context.Background(), "Combien de jours de congés ai-je ?")
	assert.True(t, result.HRRelated)
	require.NotNil(t, result.Category)
	assert.Equal(t, model.CategoryGeneralRH, *result.Category)
	assert.Equal(t, model.ConfidenceLow, result.Confidence)

	// 含离题关键词时兜底拦截
	result = g.ClassifyQuestion(context.Background(), "Quelle est la météo aujourd'hui ?")
	assert.False(t, result.HRRelated)
	assert.Nil(t, result.Category)
}

func TestClassifyQuestion_BadJSONFallsBackToKeywords(t *testing.T) {
	llmClient := &fakeLLM{structuredResp: []byte("pas du json")}
	g := newTestGuardrail(llmClient)

	result := g.ClassifyQuestion(context.Background(), "Comment poser mes congés ?")
	assert.True(t, result.HRRelated)
}

func TestValidateQuestion_Empty(t *testing.T) {
	g := newTestGuardrail(&fakeLLM{})

	err := g.ValidateQuestion(context.Background(), "   ")

	require.Error(t, err)
	assert.Equal(t, hrerrors.CodeInvalidInput, hrerrors.CodeOf(err))
	assert.Equal(t, "La question ne peut pas être vide", hrerrors.MessageOf(err))
}

func TestValidateQuestion_OffTopic(t *testing.T) {
	llmClient := &fakeLLM{
		structuredResp: []byte(`{"hrRelated": false, "category": null, "confidence": "HIGH"}`),
	}
	g := newTestGuardrail(llmClient)

	err := g.ValidateQuestion(context.Background(), "Quelle est la météo aujourd'hui ?")

	require.Error(t, err)
	assert.Equal(t, hrerrors.CodeInvalidInput, hrerrors.CodeOf(err))
	assert.Contains(t, hrerrors.MessageOf(err), "ne concerne pas les ressources humaines")
}

func TestValidateQuestion_HRQuestionPasses(t *testing.T) {
	llmClient := &fakeLLM{
		structuredResp: []byte(`{"hrRelated": true, "category": "REMUNERATION_PAIE", "confidence": "MEDIUM"}`),
	}
	g := newTestGuardrail(llmClient)

	assert.NoError(t, g.ValidateQuestion(context.Background(), "Quand est versée la paie ?"))
}

func TestValidateOutput_DetectsPII(t *testing.T) {
	g := newTestGuardrail(&fakeLLM{})

	result := g.ValidateOutput("Contactez jean@rh.fr au 06 12 34 56 78.")

	assert.False(t, result.Safe)
	assert.Contains(t, result.Issues, "PII_DETECTED: FRENCH_PHONE")
	assert.Contains(t, result.Issues, "PII_DETECTED: EMAIL")
	assert.GreaterOrEqual(t, len(result.Issues), 2)
}

func TestValidateOutput_DetectsSalaryAndIBAN(t *testing.T) {
	g := newTestGuardrail(&fakeLLM{})

	result := g.ValidateOutput("Son salaire est de 45 000 euros, IBAN FR76 3000 6000 0112 3456 7890 189.")

	assert.False(t, result.Safe)
	assert.Contains(t, result.Issues, "PII_DETECTED: SALARY")
	assert.Contains(t, result.Issues, "PII_DETECTED: IBAN")
}

func TestValidateOutput_DetectsHarmfulKeywords(t *testing.T) {
	g := newTestGuardrail(&fakeLLM{})

	result := g.ValidateOutput("Cela pourrait constituer une discrimination à l'embauche.")

	assert.False(t, result.Safe)
	assert.Contains(t, result.Issues, "HARMFUL_CONTENT: discrimination")
}

func TestValidateOutput_SafeText(t *testing.T) {
	g := newTestGuardrail(&fakeLLM{})

	result := g.ValidateOutput("Vous avez droit à vingt-cinq jours de congés payés par an.")

	assert.True(t, result.Safe)
	assert.Empty(t, result.Issues)
}

func TestValidateOutput_Idempotent(t *testing.T) {
	g := newTestGuardrail(&fakeLLM{})
	text := "Contactez jean@rh.fr pour toute question de harcèlement moral."

	first := g.ValidateOutput(text)
	second := g.ValidateOutput(text)

	assert.Equal(t, first, second)
}

func TestValidateOutput_EmptyTextIsSafe(t *testing.T) {
	g := newTestGuardrail(&fakeLLM{})

	assert.True(t, g.ValidateOutput("  ").Safe)
}

func TestNewGuardrailService_CustomKeywords(t *testing.T) {
	llmClient := &fakeLLM{structuredErr: errors.New("down")}
	g := NewGuardrailService(llmClient, config.GuardrailConfig{
		OffTopicKeywords: []string{"astrologie"},
	})

	// 自定义词表整体替换默认词表
	assert.False(t, g.ClassifyQuestion(context.Background(), "Mon signe en astrologie ?").HRRelated)
	assert.True(t, g.ClassifyQuestion(context.Background(), "Quelle est la météo ?").HRRelated)
}
