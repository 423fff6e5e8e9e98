package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sooahkim/childcenter-chat/internal/api/handlers"
	"github.com/sooahkim/childcenter-chat/internal/application/services"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
)

type stubForecastRepo struct {
	rows []repositories.ForecastRow
	err  error
}

func (s *stubForecastRepo) ListForecast(ctx context.Context, district string, yearFrom, yearTo int) ([]repositories.ForecastRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

type stubLLM struct {
	output string
	err    error
}

func (s *stubLLM) Invoke(ctx context.Context, prompt string, maxTokens int, modelKey string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

func TestReportHandler_GenerateReport(t *testing.T) {
	centers := &stubCenterRepo{centers: []*entities.Center{
		{CenterID: "c-1", CenterName: "해피센터", District: "강남구"},
	}}
	forecast := &stubForecastRepo{rows: []repositories.ForecastRow{
		{Year: 2024, PredictedChildUser: 1200},
	}}

	t.Run("returns the generated report", func(t *testing.T) {
		svc := services.NewReportService(forecast, centers, nil, nil, &stubLLM{output: "강남구 운영 보고서"}, time.Minute)
		handler := handlers.NewReportHandler(svc)

		body, _ := json.Marshal(map[string]interface{}{"district": "강남구", "year_from": 2024, "year_to": 2025})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.GenerateReport(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			District string `json:"district"`
			Report   string `json:"report"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "강남구", resp.District)
		assert.Equal(t, "강남구 운영 보고서", resp.Report)
	})

	t.Run("missing district is a 400", func(t *testing.T) {
		svc := services.NewReportService(forecast, centers, nil, nil, &stubLLM{output: "본문"}, time.Minute)
		handler := handlers.NewReportHandler(svc)

		body, _ := json.Marshal(map[string]interface{}{})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.GenerateReport(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing years are a 400", func(t *testing.T) {
		svc := services.NewReportService(forecast, centers, nil, nil, &stubLLM{output: "본문"}, time.Minute)
		handler := handlers.NewReportHandler(svc)

		body, _ := json.Marshal(map[string]interface{}{"district": "강남구"})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.GenerateReport(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "필수값이 누락되었습니다")
	})

	t.Run("generation failure is a 500 with a korean message", func(t *testing.T) {
		svc := services.NewReportService(forecast, centers, nil, nil, &stubLLM{err: assert.AnError}, time.Minute)
		handler := handlers.NewReportHandler(svc)

		body, _ := json.Marshal(map[string]interface{}{"district": "강남구", "year_from": 2024, "year_to": 2025})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.GenerateReport(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "보고서를 생성할 수 없습니다")
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		svc := services.NewReportService(forecast, centers, nil, nil, &stubLLM{output: "본문"}, time.Minute)
		handler := handlers.NewReportHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/reports/generate", bytes.NewReader([]byte("not json")))
		rec := httptest.NewRecorder()

		handler.GenerateReport(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
