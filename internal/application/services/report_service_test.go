package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sooahkim/childcenter-chat/internal/application/services"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
	apperrors "github.com/sooahkim/childcenter-chat/pkg/errors"
)

// Mocks

type MockForecastRepository struct {
	mock.Mock
}

func (m *MockForecastRepository) ListForecast(ctx context.Context, district string, yearFrom, yearTo int) ([]repositories.ForecastRow, error) {
	args := m.Called(ctx, district, yearFrom, yearTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repositories.ForecastRow), args.Error(1)
}

type MockPassageRetriever struct {
	mock.Mock
}

func (m *MockPassageRetriever) Retrieve(ctx context.Context, query string, k int) ([]entities.EvidenceDoc, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.EvidenceDoc), args.Error(1)
}

// Tests

func TestReportService_Generate(t *testing.T) {
	yoy := 4.2
	forecastRows := []repositories.ForecastRow{
		{Year: 2024, PredictedChildUser: 1200, YoYPct: nil},
		{Year: 2025, PredictedChildUser: 1250, YoYPct: &yoy},
	}
	summary := &entities.CapacitySummary{District: "강남구", CenterCount: 12, TotalCapacity: 480}

	t.Run("builds facts and evidence into the prompt", func(t *testing.T) {
		forecast := new(MockForecastRepository)
		centers := new(MockCenterRepository)
		policy := new(MockPassageRetriever)
		facts := new(MockPassageRetriever)
		llm := new(MockLLMProvider)
		svc := services.NewReportService(forecast, centers, policy, facts, llm, time.Minute)

		forecast.On("ListForecast", mock.Anything, "강남구", 2024, 2025).Return(forecastRows, nil)
		centers.On("CapacitySummary", mock.Anything, "강남구").Return(summary, nil)
		policy.On("Retrieve", mock.Anything, "강남구 지원 운영", 2).Return([]entities.EvidenceDoc{
			{Title: "지원 지침", Org: "복지부", Year: "2024", Text: "지원 기준"},
		}, nil)
		facts.On("Retrieve", mock.Anything, "강남구 이용자수", 3).Return([]entities.EvidenceDoc{}, nil)

		var capturedPrompt string
		llm.On("Invoke", mock.Anything, mock.Anything, 900, "").
			Run(func(args mock.Arguments) { capturedPrompt = args.String(1) }).
			Return("강남구 운영 보고서 본문 (G1)", nil)

		report, err := svc.Generate(context.Background(), "강남구", 2024, 2025)

		assert.NoError(t, err)
		assert.Equal(t, "강남구 운영 보고서 본문 (G1)", report)
		assert.Contains(t, capturedPrompt, "2024년 예측 이용자수 1200명 전년 대비 추가 확인 필요")
		assert.Contains(t, capturedPrompt, "2025년 예측 이용자수 1250명 전년 대비 4.2%")
		assert.Contains(t, capturedPrompt, "센터 수 12개 총 정원 480명")
		assert.Contains(t, capturedPrompt, "근거ID: G1")
	})

	t.Run("keeps the full multi-line report body", func(t *testing.T) {
		forecast := new(MockForecastRepository)
		centers := new(MockCenterRepository)
		llm := new(MockLLMProvider)
		svc := services.NewReportService(forecast, centers, nil, nil, llm, time.Minute)

		forecast.On("ListForecast", mock.Anything, "강남구", 2024, 2025).Return(forecastRows, nil)
		centers.On("CapacitySummary", mock.Anything, "강남구").Return(summary, nil)
		llm.On("Invoke", mock.Anything, mock.Anything, 900, "").
			Return("강남구 운영 개선 보고서\n\n1. 개요\n2. 수요 전망<|end_of_text|>", nil)

		report, err := svc.Generate(context.Background(), "강남구", 2024, 2025)

		assert.NoError(t, err)
		assert.Equal(t, "강남구 운영 개선 보고서\n\n1. 개요\n2. 수요 전망", report)
	})

	t.Run("retrieval failure is soft", func(t *testing.T) {
		forecast := new(MockForecastRepository)
		centers := new(MockCenterRepository)
		policy := new(MockPassageRetriever)
		facts := new(MockPassageRetriever)
		llm := new(MockLLMProvider)
		svc := services.NewReportService(forecast, centers, policy, facts, llm, time.Minute)

		forecast.On("ListForecast", mock.Anything, "강남구", 2024, 2025).Return(forecastRows, nil)
		centers.On("CapacitySummary", mock.Anything, "강남구").Return(summary, nil)
		policy.On("Retrieve", mock.Anything, mock.Anything, 2).Return(nil, assert.AnError)
		facts.On("Retrieve", mock.Anything, mock.Anything, 3).Return(nil, assert.AnError)

		var capturedPrompt string
		llm.On("Invoke", mock.Anything, mock.Anything, 900, "").
			Run(func(args mock.Arguments) { capturedPrompt = args.String(1) }).
			Return("보고서 본문", nil)

		report, err := svc.Generate(context.Background(), "강남구", 2024, 2025)

		assert.NoError(t, err)
		assert.NotEmpty(t, report)
		assert.Contains(t, capturedPrompt, "근거 없음")
	})

	t.Run("forecast failure is a hard error", func(t *testing.T) {
		forecast := new(MockForecastRepository)
		centers := new(MockCenterRepository)
		llm := new(MockLLMProvider)
		svc := services.NewReportService(forecast, centers, nil, nil, llm, time.Minute)

		forecast.On("ListForecast", mock.Anything, "강남구", 2024, 2025).Return(nil, assert.AnError)

		_, err := svc.Generate(context.Background(), "강남구", 2024, 2025)

		var appErr *apperrors.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, apperrors.ErrorTypeUnavailable, appErr.Type)
		}
	})

	t.Run("generation failure is a hard error", func(t *testing.T) {
		forecast := new(MockForecastRepository)
		centers := new(MockCenterRepository)
		llm := new(MockLLMProvider)
		svc := services.NewReportService(forecast, centers, nil, nil, llm, time.Minute)

		forecast.On("ListForecast", mock.Anything, "강남구", 2024, 2025).Return(forecastRows, nil)
		centers.On("CapacitySummary", mock.Anything, "강남구").Return(summary, nil)
		llm.On("Invoke", mock.Anything, mock.Anything, 900, "").Return("", assert.AnError)

		_, err := svc.Generate(context.Background(), "강남구", 2024, 2025)

		var appErr *apperrors.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, apperrors.ErrorTypeExternal, appErr.Type)
		}
	})

	t.Run("empty district is a validation error", func(t *testing.T) {
		svc := services.NewReportService(new(MockForecastRepository), new(MockCenterRepository), nil, nil, new(MockLLMProvider), time.Minute)

		_, err := svc.Generate(context.Background(), "", 2024, 2025)

		var appErr *apperrors.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
		}
	})

	t.Run("missing llm is unavailable", func(t *testing.T) {
		svc := services.NewReportService(new(MockForecastRepository), new(MockCenterRepository), nil, nil, nil, time.Minute)

		_, err := svc.Generate(context.Background(), "강남구", 2024, 2025)

		var appErr *apperrors.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, apperrors.ErrorTypeUnavailable, appErr.Type)
		}
	})
}
