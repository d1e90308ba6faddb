// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/hrerrors"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/pkg/llm"
	"hr-assistant-go/pkg/log"
)

// 关键词兜底的默认词表，法语部署环境下的已知离题主题。
// 可通过配置整体替换以适配其他语言环境。
var defaultOffTopicKeywords = []string{
	"météo", "weather",
	"capitale", "géographie",
	"recette", "cuisine",
	"sport", "football",
	"actualité", "news",
	"film", "cinéma",
	"blague", "joke",
}

// 输出侧的敏感话题默认词表。
var defaultHarmfulKeywords = []string{
	"discrimination", "discriminatoire",
	"harcèlement sexuel", "harcèlement moral",
	"licenciement abusif", "conseil juridique",
	"avis médical", "diagnostic",
}

// piiDetector 是一个独立的 PII 模式检测器。
type piiDetector struct {
	tag     string
	pattern *regexp.Regexp
}

// piiDetectors 按固定顺序执行，保证 issues 列表的顺序可复现。
// 各检测器互相独立，同时命中的问题会全部上报。
var piiDetectors = []piiDetector{
	{"FRENCH_PHONE", regexp.MustCompile(`(?:(?:\+33|0033)\s?|0)[1-9](?:[\s.-]?\d{2}){4}`)},
	{"EMAIL", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"FRENCH_SSN", regexp.MustCompile(`[12]\s?\d{2}\s?\d{2}\s?\d{2}\s?\d{3}\s?\d{3}\s?\d{2}`)},
	{"IBAN", regexp.MustCompile(`FR\d{2}\s?\d{4}\s?\d{4}\s?\d{4}\s?\d{4}\s?\d{4}\s?\d{3}`)},
	{"SALARY", regexp.MustCompile(`(?i)\d{1,3}(?:[\s.,]\d{3})*(?:[.,]\d{2})?\s?(?:euros?|EUR|€)`)},
}

const classificationPromptTemplate = `Tu es un classificateur de questions pour un assistant RH interne.
Détermine si la question suivante concerne les ressources humaines (congés, paie, formation, avantages sociaux, contrat de travail, recrutement, règlement intérieur).

Question: %s

Réponds UNIQUEMENT avec un objet JSON de la forme:
{"hrRelated": true|false, "category": "CONGES_ABSENCES|REMUNERATION_PAIE|FORMATION_DEVELOPPEMENT|AVANTAGES_SOCIAUX|CONTRAT_CONDITIONS|RECRUTEMENT_INTEGRATION|REGLEMENT_DISCIPLINE|GENERAL_RH", "confidence": "HIGH|MEDIUM|LOW"}

Si la question n'est pas liée aux RH, "category" doit être null.`

// 面向用户的固定文案。
const (
	msgEmptyQuestion = "La question ne peut pas être vide"
	msgOffTopic      = "Cette question ne concerne pas les ressources humaines. Veuillez contacter directement le service RH pour des questions non liées aux politiques RH."
)

// GuardrailService 定义了输入分类与输出校验的接口。
type GuardrailService interface {
	// ClassifyQuestion 对问题进行领域分类，任何内部失败都由关键词兜底吸收，永不返回错误。
	ClassifyQuestion(ctx context.Context, question string) model.GuardrailResult
	// ValidateQuestion 校验问题是否可以进入 RAG 流程，只会因空问题或离题返回 INVALID_INPUT。
	ValidateQuestion(ctx context.Context, question string) error
	// ValidateOutput 对生成的回答做 PII 与敏感话题检测，结果是确定性的。
	ValidateOutput(text string) model.OutputGuardrailResult
}

type guardrailService struct {
	llmClient             llm.Client
	classificationTimeout time.Duration
	offTopicKeywords      []string
	harmfulKeywords       []string
}

// NewGuardrailService 创建一个新的 GuardrailService 实例。
// 配置中的词表为空时使用法语默认词表。
func NewGuardrailService(llmClient llm.Client, cfg config.GuardrailConfig) GuardrailService {
	offTopic := cfg.OffTopicKeywords
	if len(offTopic) == 0 {
		offTopic = defaultOffTopicKeywords
	}
	harmful := cfg.HarmfulKeywords
	if len(harmful) == 0 {
		harmful = defaultHarmfulKeywords
	}
	timeout := time.Duration(cfg.ClassificationTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &guardrailService{
		llmClient:             llmClient,
		classificationTimeout: timeout,
		offTopicKeywords:      offTopic,
		harmfulKeywords:       harmful,
	}
}

// ClassifyQuestion 优先使用 LLM 结构化分类，失败时回退到关键词检测。
func (s *guardrailService) ClassifyQuestion(ctx context.Context, question string) model.GuardrailResult {
	result, err := s.classifyWithLLM(ctx, question)
	if err != nil {
		log.Warnf("[Guardrail] LLM 分类失败，回退到关键词检测: %v", err)
		return s.classifyWithKeywords(question)
	}

	log.Infof("[Guardrail] 问题分类完成: hrRelated=%v, category=%v, confidence=%s",
		result.HRRelated, result.Category, result.Confidence)
	return result
}

// ValidateQuestion 校验问题是否适合交给 HR 助手处理。
func (s *guardrailService) ValidateQuestion(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		log.Warnf("[Guardrail] 收到空问题")
		return hrerrors.New(hrerrors.CodeInvalidInput, msgEmptyQuestion)
	}

	result := s.ClassifyQuestion(ctx, question)
	if !result.HRRelated {
		log.Infof("[Guardrail] 检测到离题问题: %s", question)
		return hrerrors.New(hrerrors.CodeInvalidInput, msgOffTopic)
	}

	log.Debugf("[Guardrail] 问题校验通过: %s", question)
	return nil
}

// ValidateOutput 对输出文本执行全部检测器并汇总问题列表。
// 本组件只上报问题，不做原地脱敏；替换文案由调用方决定。
func (s *guardrailService) ValidateOutput(text string) model.OutputGuardrailResult {
	if strings.TrimSpace(text) == "" {
		return model.SafeOutput()
	}

	var issues []string

	for _, d := range piiDetectors {
		if d.pattern.MatchString(text) {
			log.Warnf("[Guardrail] 输出中检测到 PII: %s", d.tag)
			issues = append(issues, "PII_DETECTED: "+d.tag)
		}
	}

	lower := strings.ToLower(text)
	for _, keyword := range s.harmfulKeywords {
		if strings.Contains(lower, keyword) {
			log.Warnf("[Guardrail] 输出中检测到敏感话题: %s", keyword)
			issues = append(issues, "HARMFUL_CONTENT: "+keyword)
		}
	}

	if len(issues) == 0 {
		log.Debugf("[Guardrail] 输出校验通过")
		return model.SafeOutput()
	}

	log.Warnf("[Guardrail] 输出被拦截, issues=%v", issues)
	return model.UnsafeOutput(issues)
}

// classifyWithLLM 在硬超时内调用 LLM 做结构化分类。
func (s *guardrailService) classifyWithLLM(ctx context.Context, question string) (model.GuardrailResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.classificationTimeout)
	defer cancel()

	prompt := fmt.Sprintf(classificationPromptTemplate, question)
	raw, err := s.llmClient.GenerateStructured(ctx, prompt)
	if err != nil {
		return model.GuardrailResult{}, fmt.Errorf("classification call failed: %w", err)
	}

	var classification model.ClassificationResponse
	if err := json.Unmarshal(raw, &classification); err != nil {
		return model.GuardrailResult{}, fmt.Errorf("failed to parse classification response: %w", err)
	}

	return s.mapClassification(classification), nil
}

// mapClassification 将 LLM 的原始分类响应映射为 GuardrailResult。
func (s *guardrailService) mapClassification(classification model.ClassificationResponse) model.GuardrailResult {
	var category *model.HrCategory
	if classification.HRRelated && classification.Category != "" {
		parsed, known := model.ParseHrCategory(classification.Category)
		if !known {
			log.Warnf("[Guardrail] LLM 返回了未知分类 '%s'，回退为 GENERAL_RH", classification.Category)
		}
		category = &parsed
	}

	confidence := model.ParseConfidenceLevel(classification.Confidence)
	return model.NewGuardrailResult(classification.HRRelated, category, confidence)
}

// classifyWithKeywords 关键词兜底分类。
// 刻意保持宽容：只有命中已知离题词才判为离题，无法判断时一律放行。
func (s *guardrailService) classifyWithKeywords(question string) model.GuardrailResult {
	offTopic := s.isOffTopicByKeywords(question)
	result := model.NewGuardrailResult(!offTopic, nil, model.ConfidenceLow)

	log.Infof("[Guardrail] 问题分类完成(关键词兜底): hrRelated=%v, confidence=%s",
		result.HRRelated, result.Confidence)
	return result
}

// isOffTopicByKeywords 对问题做大小写不敏感的子串匹配。
func (s *guardrailService) isOffTopicByKeywords(question string) bool {
	lower := strings.ToLower(question)
	for _, keyword := range s.offTopicKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
