package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/providers"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/observability"
)

const intentPromptTmpl = `너는 지역아동센터 챗봇의 '인텐트 분류기'다. 반드시 JSON만 출력한다.
가능한 intent: RECO_NEAR, RECO_FAR, PHONE, ADDRESS, FEE, CAP_SUM, NOISE, OUT_OF_DOMAIN
출력 형식: {"intent": "...", "slots": {}}
[사용자 질문] %s
`

const intentCacheTTLSeconds = 86400 // 24 hours

// lexicalRule pairs a keyword set with the intent it resolves to. Rules are
// evaluated in declaration order; the first hit wins.
type lexicalRule struct {
	keywords []string
	intent   entities.Intent
}

var lexicalRules = []lexicalRule{
	{keywords: []string{"가까", "근처", "추천", "어디있어", "센터알려"}, intent: entities.IntentRecoNear},
	{keywords: []string{"전화", "번호"}, intent: entities.IntentPhone},
	{keywords: []string{"주소", "위치", "지도"}, intent: entities.IntentAddress},
}

// IntentClassifier decides what the user wants. The lexical tier is
// deterministic and never calls the generative backend; only unmatched
// messages fall through to the structured LLM classification, and any
// failure there degrades to NOISE.
type IntentClassifier struct {
	llm     providers.LLMProvider
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewIntentClassifier creates a new intent classifier. llm and cache may be
// nil; without an llm the fallback tier resolves to NOISE directly.
func NewIntentClassifier(llm providers.LLMProvider, cache providers.CacheProvider, metrics *observability.Metrics) *IntentClassifier {
	return &IntentClassifier{llm: llm, cache: cache, metrics: metrics}
}

// Classify resolves one message to an IntentResult. It always returns a
// result and never propagates an error.
func (c *IntentClassifier) Classify(ctx context.Context, msg string) entities.IntentResult {
	normalized := strings.ToLower(strings.ReplaceAll(msg, " ", ""))

	for _, rule := range lexicalRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				observability.RecordIntent(ctx, c.metrics, string(rule.intent), true)
				return entities.IntentResult{Intent: rule.intent, Slots: map[string]string{}}
			}
		}
	}

	result := c.classifyLLM(ctx, msg, normalized)
	observability.RecordIntent(ctx, c.metrics, string(result.Intent), false)
	return result
}

func (c *IntentClassifier) classifyLLM(ctx context.Context, msg, normalized string) entities.IntentResult {
	noise := entities.IntentResult{Intent: entities.IntentNoise, Slots: map[string]string{}}

	if c.llm == nil {
		return noise
	}

	cacheKey := "intent:" + normalized
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached entities.IntentResult
			if json.Unmarshal(data, &cached) == nil && cached.Intent.IsKnown() {
				if cached.Slots == nil {
					cached.Slots = map[string]string{}
				}
				return cached
			}
		}
	}

	raw, err := c.llm.Invoke(ctx, fmt.Sprintf(intentPromptTmpl, msg), 100, "")
	if err != nil {
		log.Debug().Err(err).Msg("intent classification fallback failed")
		return noise
	}

	result, ok := decodeIntentJSON(raw)
	if !ok {
		return noise
	}

	if c.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = c.cache.Set(ctx, cacheKey, data, intentCacheTTLSeconds)
		}
	}

	return result
}

// decodeIntentJSON locates the first '{' and last '}' in the raw model
// output and decodes that substring. Anything malformed yields ok=false.
func decodeIntentJSON(raw string) (entities.IntentResult, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, endOfTextMarker, ""))

	lb := strings.Index(cleaned, "{")
	rb := strings.LastIndex(cleaned, "}")
	if lb == -1 || rb == -1 || rb < lb {
		return entities.IntentResult{}, false
	}

	var parsed struct {
		Intent string            `json:"intent"`
		Slots  map[string]string `json:"slots"`
	}
	if err := json.Unmarshal([]byte(cleaned[lb:rb+1]), &parsed); err != nil {
		return entities.IntentResult{}, false
	}
	if parsed.Intent == "" {
		return entities.IntentResult{}, false
	}

	intent := entities.Intent(strings.ToUpper(strings.TrimSpace(parsed.Intent)))
	if !intent.IsKnown() {
		return entities.IntentResult{}, false
	}

	slots := parsed.Slots
	if slots == nil {
		slots = map[string]string{}
	}
	return entities.IntentResult{Intent: intent, Slots: slots}, true
}
