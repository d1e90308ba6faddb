// Package model 包含了应用的数据模型定义。
package model

import "strings"

// HrCategory 表示问题所属的 HR 领域分类。
type HrCategory string

// 预定义的 HR 分类，取值与分类提示词中的枚举保持一致。
const (
	CategoryCongesAbsences         HrCategory = "CONGES_ABSENCES"
	CategoryRemunerationPaie       HrCategory = "REMUNERATION_PAIE"
	CategoryFormationDeveloppement HrCategory = "FORMATION_DEVELOPPEMENT"
	CategoryAvantagesSociaux       HrCategory = "AVANTAGES_SOCIAUX"
	CategoryContratConditions      HrCategory = "CONTRAT_CONDITIONS"
	CategoryRecrutementIntegration HrCategory = "RECRUTEMENT_INTEGRATION"
	CategoryReglementDiscipline    HrCategory = "REGLEMENT_DISCIPLINE"
	CategoryGeneralRH              HrCategory = "GENERAL_RH"
)

// hrCategoryLabels 维护分类到展示名称的映射。
var hrCategoryLabels = map[HrCategory]string{
	CategoryCongesAbsences:         "Congés / Absences",
	CategoryRemunerationPaie:       "Rémunération / Paie",
	CategoryFormationDeveloppement: "Formation / Développement",
	CategoryAvantagesSociaux:       "Avantages sociaux",
	CategoryContratConditions:      "Contrat / Conditions de travail",
	CategoryRecrutementIntegration: "Recrutement / Intégration",
	CategoryReglementDiscipline:    "Règlement intérieur / Discipline",
	CategoryGeneralRH:              "Général RH",
}

// DisplayLabel 返回分类的法语展示名称。
func (c HrCategory) DisplayLabel() string {
	return hrCategoryLabels[c]
}

// ParseHrCategory 将 LLM 返回的分类名解析为 HrCategory。
// 大小写不敏感；无法识别的值回退为 GENERAL_RH。
func ParseHrCategory(s string) (HrCategory, bool) {
	c := HrCategory(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := hrCategoryLabels[c]; ok {
		return c, true
	}
	return CategoryGeneralRH, false
}

// ConfidenceLevel 表示分类结果的置信度等级。
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// ParseConfidenceLevel 解析置信度等级，无法识别时回退为 MEDIUM。
func ParseConfidenceLevel(s string) ConfidenceLevel {
	switch ConfidenceLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// GuardrailResult 是输入分类的最终结果。
// 不变式：HRRelated 为 false 时 Category 必为 nil；
// HRRelated 为 true 且分类缺失时回退为 GENERAL_RH。
type GuardrailResult struct {
	HRRelated  bool            `json:"hrRelated"`
	Category   *HrCategory     `json:"category,omitempty"`
	Confidence ConfidenceLevel `json:"confidence"`
}

// NewGuardrailResult 构造 GuardrailResult 并强制维护不变式。
func NewGuardrailResult(hrRelated bool, category *HrCategory, confidence ConfidenceLevel) GuardrailResult {
	if !hrRelated {
		category = nil
	} else if category == nil {
		generic := CategoryGeneralRH
		category = &generic
	}
	return GuardrailResult{HRRelated: hrRelated, Category: category, Confidence: confidence}
}

// ClassificationResponse 是 LLM 分类调用返回的原始 JSON 结构。
type ClassificationResponse struct {
	HRRelated  bool   `json:"hrRelated"`
	Category   string `json:"category"`
	Confidence string `json:"confidence"`
}

// OutputGuardrailResult 是输出校验的结果。
// 不变式：Safe 为 true 时 Issues 为空且 SanitizedContent 为 nil。
type OutputGuardrailResult struct {
	Safe             bool     `json:"safe"`
	Issues           []string `json:"issues"`
	SanitizedContent *string  `json:"sanitizedContent,omitempty"`
}

// SafeOutput 返回一个表示校验通过的结果。
func SafeOutput() OutputGuardrailResult {
	return OutputGuardrailResult{Safe: true, Issues: []string{}}
}

// UnsafeOutput 返回一个携带问题列表的拦截结果。
func UnsafeOutput(issues []string) OutputGuardrailResult {
	return OutputGuardrailResult{Safe: false, Issues: issues}
}
