package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sooahkim/childcenter-chat/internal/application/services"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
)

func scoredCenter(name string, distanceKm float64) entities.ScoredCenter {
	capacity := 40
	return entities.ScoredCenter{
		Center: entities.Center{
			CenterID:   "c-" + name,
			CenterName: name,
			District:   "강남구",
			Capacity:   &capacity,
			SatYN:      "Y",
			Phone:      "02-123-4567",
		},
		DistanceKm: distanceKm,
	}
}

func TestFormatCenters(t *testing.T) {
	t.Run("renders one numbered line per center", func(t *testing.T) {
		text := services.FormatCenters([]entities.ScoredCenter{
			scoredCenter("해피센터", 0.8),
			scoredCenter("드림센터", 1.25),
		})

		lines := strings.Split(text, "\n")
		if assert.Len(t, lines, 2) {
			assert.Contains(t, lines[0], "1) 해피센터(강남구)")
			assert.Contains(t, lines[0], "0.8km")
			assert.Contains(t, lines[0], "정원:40명")
			assert.Contains(t, lines[0], "토요일:운영")
			assert.Contains(t, lines[1], "2) 드림센터(강남구)")
			assert.Contains(t, lines[1], "1.25km")
		}
	})

	t.Run("missing fields render as placeholders", func(t *testing.T) {
		sc := entities.ScoredCenter{
			Center:     entities.Center{CenterName: "미지센터", District: "서초구"},
			DistanceKm: 2.1,
		}

		text := services.FormatCenters([]entities.ScoredCenter{sc})

		assert.Contains(t, text, "정원:정보 없음")
		assert.Contains(t, text, "토요일:미운영")
		assert.Contains(t, text, "전화:정보 없음")
	})

	t.Run("empty result renders the no-match message", func(t *testing.T) {
		text := services.FormatCenters(nil)

		assert.Contains(t, text, "찾지 못했어요")
	})
}

func TestFormatCenterDetail(t *testing.T) {
	capacity := 30
	center := &entities.Center{
		CenterName: "해피센터",
		District:   "강남구",
		Address:    "서울 강남구 테헤란로 1",
		Phone:      "02-123-4567",
		Capacity:   &capacity,
	}

	t.Run("includes distance when provided", func(t *testing.T) {
		d := 1.2345
		text := services.FormatCenterDetail(center, &d)

		assert.Contains(t, text, "[해피센터] 정보:")
		assert.Contains(t, text, "- 거리: 1.234km")
		assert.Contains(t, text, "- 정원: 30명")
	})

	t.Run("omits distance when absent", func(t *testing.T) {
		text := services.FormatCenterDetail(center, nil)

		assert.NotContains(t, text, "거리")
		assert.Contains(t, text, "- 주소: 서울 강남구 테헤란로 1")
	})
}

func TestResponseComposer_ComposeRecommendation(t *testing.T) {
	centers := []entities.ScoredCenter{scoredCenter("해피센터", 0.8)}

	t.Run("nil llm returns the deterministic rendering", func(t *testing.T) {
		composer := services.NewResponseComposer(nil, time.Second)

		text := composer.ComposeRecommendation(context.Background(), "가까운 센터", centers)

		assert.Equal(t, services.FormatCenters(centers), text)
	})

	t.Run("valid rewrite passes the gate", func(t *testing.T) {
		llm := new(MockLLMProvider)
		composer := services.NewResponseComposer(llm, time.Second)

		llm.On("Invoke", mock.Anything, mock.Anything, 160, "").
			Return("1) 해피센터(강남구) - 0.8km, 도보 10분 거리예요!<|end_of_text|>", nil)

		text := composer.ComposeRecommendation(context.Background(), "가까운 센터", centers)

		assert.Equal(t, "1) 해피센터(강남구) - 0.8km, 도보 10분 거리예요!", text)
	})

	t.Run("llm failure falls back", func(t *testing.T) {
		llm := new(MockLLMProvider)
		composer := services.NewResponseComposer(llm, time.Second)

		llm.On("Invoke", mock.Anything, mock.Anything, 160, "").Return("", errors.New("timeout"))

		text := composer.ComposeRecommendation(context.Background(), "가까운 센터", centers)

		assert.Equal(t, services.FormatCenters(centers), text)
	})

	t.Run("template echo falls back", func(t *testing.T) {
		llm := new(MockLLMProvider)
		composer := services.NewResponseComposer(llm, time.Second)

		llm.On("Invoke", mock.Anything, mock.Anything, 160, "").
			Return("1) 센터명(자치구) - 거리, 정원, 전화번호", nil)

		text := composer.ComposeRecommendation(context.Background(), "가까운 센터", centers)

		assert.Equal(t, services.FormatCenters(centers), text)
	})

	t.Run("empty rewrite falls back", func(t *testing.T) {
		llm := new(MockLLMProvider)
		composer := services.NewResponseComposer(llm, time.Second)

		llm.On("Invoke", mock.Anything, mock.Anything, 160, "").Return("<|end_of_text|>", nil)

		text := composer.ComposeRecommendation(context.Background(), "가까운 센터", centers)

		assert.Equal(t, services.FormatCenters(centers), text)
	})
}

func TestResponseComposer_SmallTalk(t *testing.T) {
	t.Run("nil llm returns the canned greeting", func(t *testing.T) {
		composer := services.NewResponseComposer(nil, time.Second)

		text := composer.SmallTalk(context.Background(), "안녕!")

		assert.NotEmpty(t, text)
	})

	t.Run("llm answer is cleaned", func(t *testing.T) {
		llm := new(MockLLMProvider)
		composer := services.NewResponseComposer(llm, time.Second)

		llm.On("Invoke", mock.Anything, mock.Anything, 100, "").
			Return("프롬프트 에코\n### Response: 안녕하세요! 반가워요.<|end_of_text|>", nil)

		text := composer.SmallTalk(context.Background(), "안녕!")

		assert.Equal(t, "안녕하세요! 반가워요.", text)
	})

	t.Run("llm failure returns the canned greeting", func(t *testing.T) {
		llm := new(MockLLMProvider)
		composer := services.NewResponseComposer(llm, time.Second)

		llm.On("Invoke", mock.Anything, mock.Anything, 100, "").Return("", errors.New("down"))

		text := composer.SmallTalk(context.Background(), "안녕!")

		assert.NotEmpty(t, text)
	})
}

func TestCleanAnswer(t *testing.T) {
	t.Run("keeps only numbered lines up to the limit", func(t *testing.T) {
		raw := "추천 결과입니다.\n1) A센터 - 0.5km\n2) B센터 - 1.2km\n3) C센터 - 2km\n감사합니다."

		cleaned := services.CleanAnswer(raw, 2)

		assert.Equal(t, "1) A센터 - 0.5km\n2) B센터 - 1.2km", cleaned)
	})

	t.Run("keeps everything after the last response delimiter", func(t *testing.T) {
		raw := "### Response: 첫 시도\n### Response: 최종 답변"

		assert.Equal(t, "최종 답변", services.CleanAnswer(raw, 0))
	})

	t.Run("collapses to the first line when no numbered lines exist", func(t *testing.T) {
		raw := "근처에 좋은 센터가 있어요.\n자세한 내용은 센터에 문의해주세요.\n감사합니다."

		assert.Equal(t, "근처에 좋은 센터가 있어요.", services.CleanAnswer(raw, 3))
	})

	t.Run("collapses multi-line chatter without a limit", func(t *testing.T) {
		raw := "반가워요!\n\n또 궁금한 게 있으면 물어보세요."

		assert.Equal(t, "반가워요!", services.CleanAnswer(raw, 0))
	})

	t.Run("pure markers clean to empty", func(t *testing.T) {
		assert.Empty(t, services.CleanAnswer("<|end_of_text|>", 0))
	})
}

func TestStripGenerationMarkers(t *testing.T) {
	t.Run("keeps multi-line output intact", func(t *testing.T) {
		raw := "보고서 제목\n\n1. 개요\n2. 전망<|end_of_text|>"

		assert.Equal(t, "보고서 제목\n\n1. 개요\n2. 전망", services.StripGenerationMarkers(raw))
	})

	t.Run("drops everything before the last response delimiter", func(t *testing.T) {
		raw := "프롬프트 에코\n### Response:\n본문 첫 줄\n본문 둘째 줄"

		assert.Equal(t, "본문 첫 줄\n본문 둘째 줄", services.StripGenerationMarkers(raw))
	})
}

func TestLooksLikeTemplate(t *testing.T) {
	t.Run("detects placeholder echo regardless of spacing", func(t *testing.T) {
		assert.True(t, services.LooksLikeTemplate("1) 센터명 (자치구) - 거리"))
	})

	t.Run("accepts a real answer", func(t *testing.T) {
		assert.False(t, services.LooksLikeTemplate("1) 해피센터(강남구) - 0.8km"))
	})
}
