package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHrCategory(t *testing.T) {
	c, ok := ParseHrCategory("conges_absences")
	assert.True(t, ok)
	assert.Equal(t, CategoryCongesAbsences, c)

	c, ok = ParseHrCategory("  REMUNERATION_PAIE ")
	assert.True(t, ok)
	assert.Equal(t, CategoryRemunerationPaie, c)

	// 未知分类回退为 GENERAL_RH
	c, ok = ParseHrCategory("AUTRE_CHOSE")
	assert.False(t, ok)
	assert.Equal(t, CategoryGeneralRH, c)
}

func TestParseConfidenceLevel(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ParseConfidenceLevel("high"))
	assert.Equal(t, ConfidenceLow, ParseConfidenceLevel("LOW"))
	assert.Equal(t, ConfidenceMedium, ParseConfidenceLevel(""))
	assert.Equal(t, ConfidenceMedium, ParseConfidenceLevel("inconnu"))
}

func TestNewGuardrailResult_Invariants(t *testing.T) {
	paie := CategoryRemunerationPaie

	// 离题结果不携带分类
	result := NewGuardrailResult(false, &paie, ConfidenceHigh)
	assert.False(t, result.HRRelated)
	assert.Nil(t, result.Category)

	// 相关但分类缺失时回退为 GENERAL_RH
	result = NewGuardrailResult(true, nil, ConfidenceMedium)
	require.NotNil(t, result.Category)
	assert.Equal(t, CategoryGeneralRH, *result.Category)

	result = NewGuardrailResult(true, &paie, ConfidenceHigh)
	require.NotNil(t, result.Category)
	assert.Equal(t, CategoryRemunerationPaie, *result.Category)
}

func TestHrCategoryDisplayLabel(t *testing.T) {
	assert.Equal(t, "Congés / Absences", CategoryCongesAbsences.DisplayLabel())
	assert.Equal(t, "Général RH", CategoryGeneralRH.DisplayLabel())
}

func TestOutputGuardrailResult(t *testing.T) {
	safe := SafeOutput()
	assert.True(t, safe.Safe)
	assert.Empty(t, safe.Issues)

	unsafe := UnsafeOutput([]string{"PII_DETECTED: EMAIL"})
	assert.False(t, unsafe.Safe)
	assert.Equal(t, []string{"PII_DETECTED: EMAIL"}, unsafe.Issues)
}
