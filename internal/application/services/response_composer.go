package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/providers"
)

const (
	endOfTextMarker   = "<|end_of_text|>"
	responseDelimiter = "### Response:"

	recommendPromptTmpl = `너는 지역아동센터 추천 비서다.
출력 규칙(중요): 아래 CENTER_CONTEXT에 있는 실제 센터만 사용한다. 답변은 반드시 "추천 줄"만 출력한다.
형식: 번호) 센터명(자치구) - 거리, 정원, 토요일 운영 여부, 전화번호
[CENTER_CONTEXT]
%s
[사용자 질문] %s
`

	smallTalkPromptTmpl = "너는 친절한 AI 비서야. 한국어로 짧게 답해줘. 질문: %s\n### 응답:"

	smallTalkFallback = "반가워요! 무엇을 도와드릴까요?"
)

// templateDenylist marks generations that echoed the prompt's format
// placeholders instead of real centers.
var templateDenylist = []string{
	"센터명(자치구)",
	"...",
	"2)...",
	"1) 센터명",
}

var numberedLineRe = regexp.MustCompile(`^\d+\)\s*`)

// ResponseComposer turns search results into user-facing Korean text. The
// deterministic rendering is always computed first; the generative rewrite is
// optional and every failure mode falls back to it. Composer methods never
// return an empty string and never return an error.
type ResponseComposer struct {
	llm         providers.LLMProvider
	chatTimeout time.Duration
}

// NewResponseComposer creates a new composer. llm may be nil, in which case
// all output is deterministic.
func NewResponseComposer(llm providers.LLMProvider, chatTimeout time.Duration) *ResponseComposer {
	if chatTimeout <= 0 {
		chatTimeout = 20 * time.Second
	}
	return &ResponseComposer{llm: llm, chatTimeout: chatTimeout}
}

// FormatCenters renders the deterministic recommendation lines.
func FormatCenters(centers []entities.ScoredCenter) string {
	if len(centers) == 0 {
		return "조건에 맞는 지역아동센터를 찾지 못했어요. 반경을 넓히거나 조건을 바꿔보세요."
	}

	lines := make([]string, 0, len(centers))
	for i, sc := range centers {
		capacity := "정보 없음"
		if sc.Capacity != nil {
			capacity = fmt.Sprintf("%d명", *sc.Capacity)
		}
		sat := "미운영"
		if sc.SatYN == "Y" {
			sat = "운영"
		}
		phone := sc.Phone
		if phone == "" {
			phone = "정보 없음"
		}
		lines = append(lines, fmt.Sprintf("%d) %s(%s) - %skm, 정원:%s, 토요일:%s, 전화:%s",
			i+1, sc.CenterName, sc.District,
			strconv.FormatFloat(sc.DistanceKm, 'f', -1, 64),
			capacity, sat, phone))
	}
	return strings.Join(lines, "\n")
}

// FormatCenterDetail renders the single-center info block.
func FormatCenterDetail(c *entities.Center, distanceKm *float64) string {
	capacity := "정보 없음"
	if c.Capacity != nil {
		capacity = fmt.Sprintf("%d명", *c.Capacity)
	}
	phone := c.Phone
	if phone == "" {
		phone = "정보 없음"
	}
	address := c.Address
	if address == "" {
		address = "정보 없음"
	}

	var distance string
	if distanceKm != nil {
		distance = fmt.Sprintf("\n- 거리: %.3fkm", *distanceKm)
	}

	return fmt.Sprintf("[%s] 정보:\n- 자치구: %s%s\n- 주소: %s\n- 전화: %s\n- 정원: %s",
		c.CenterName, c.District, distance, address, phone, capacity)
}

// ComposeRecommendation returns the recommendation text for the given
// results. When the generative backend is available its rewrite is used, but
// only after it survives the validation gate; otherwise the deterministic
// rendering is returned.
func (r *ResponseComposer) ComposeRecommendation(ctx context.Context, question string, centers []entities.ScoredCenter) string {
	fallback := FormatCenters(centers)
	if r.llm == nil || len(centers) == 0 {
		return fallback
	}

	ctxLines := make([]string, 0, len(centers))
	for _, sc := range centers {
		ctxLines = append(ctxLines, fmt.Sprintf("- %s | %skm",
			sc.CenterName, strconv.FormatFloat(sc.DistanceKm, 'f', -1, 64)))
	}
	prompt := fmt.Sprintf(recommendPromptTmpl, strings.Join(ctxLines, "\n"), question)

	llmCtx, cancel := context.WithTimeout(ctx, r.chatTimeout)
	defer cancel()

	raw, err := r.llm.Invoke(llmCtx, prompt, 160, "")
	if err != nil {
		log.Warn().Err(err).Msg("recommendation rewrite failed, using deterministic rendering")
		return fallback
	}

	cleaned := CleanAnswer(raw, len(centers))
	if cleaned == "" || LooksLikeTemplate(cleaned) {
		return fallback
	}
	return cleaned
}

// SmallTalk answers off-domain chatter.
func (r *ResponseComposer) SmallTalk(ctx context.Context, question string) string {
	if r.llm == nil {
		return smallTalkFallback
	}

	llmCtx, cancel := context.WithTimeout(ctx, r.chatTimeout)
	defer cancel()

	raw, err := r.llm.Invoke(llmCtx, fmt.Sprintf(smallTalkPromptTmpl, question), 100, "")
	if err != nil {
		log.Warn().Err(err).Msg("small talk generation failed")
		return smallTalkFallback
	}

	cleaned := CleanAnswer(raw, 0)
	if cleaned == "" {
		return smallTalkFallback
	}
	return cleaned
}

// StripGenerationMarkers removes the end-of-text marker and any prompt echo
// before the last response delimiter. Long-form output (reports) goes through
// this without the single-line collapse that CleanAnswer applies.
func StripGenerationMarkers(raw string) string {
	text := strings.ReplaceAll(raw, endOfTextMarker, "")
	if idx := strings.LastIndex(text, responseDelimiter); idx != -1 {
		text = text[idx+len(responseDelimiter):]
	}
	return strings.TrimSpace(text)
}

// CleanAnswer strips generation markers and prompt echo from raw model
// output. When limit > 0 the answer is cut to that many numbered lines; when
// no numbered line survives the answer collapses to its first non-empty line.
func CleanAnswer(raw string, limit int) string {
	text := StripGenerationMarkers(raw)
	if text == "" {
		return ""
	}

	lines := make([]string, 0, 8)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	if limit > 0 {
		kept := make([]string, 0, limit)
		for _, line := range lines {
			if numberedLineRe.MatchString(line) {
				kept = append(kept, line)
				if len(kept) == limit {
					break
				}
			}
		}
		if len(kept) > 0 {
			return strings.Join(kept, "\n")
		}
	}

	return lines[0]
}

// LooksLikeTemplate reports whether the answer echoed format placeholders
// instead of real data.
func LooksLikeTemplate(answer string) bool {
	stripped := strings.ReplaceAll(answer, " ", "")
	for _, marker := range templateDenylist {
		if strings.Contains(stripped, strings.ReplaceAll(marker, " ", "")) {
			return true
		}
	}
	return false
}
