package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sooahkim/childcenter-chat/internal/application/services"
	apperrors "github.com/sooahkim/childcenter-chat/pkg/errors"
)

const (
	reportUnavailableMessage   = "현재 서버 연결이 원활하지 않아 보고서를 생성할 수 없습니다. 서버 상태를 확인해주세요."
	reportMissingParamsMessage = "필수값이 누락되었습니다."
)

// ReportHandler handles district report generation requests
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

type reportRequest struct {
	District string `json:"district"`
	YearFrom int    `json:"year_from"`
	YearTo   int    `json:"year_to"`
}

// GenerateReport handles POST /api/reports/generate
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.District) == "" || req.YearFrom == 0 || req.YearTo == 0 {
		respondWithError(w, http.StatusBadRequest, reportMissingParamsMessage)
		return
	}

	report, err := h.reportService.Generate(r.Context(), req.District, req.YearFrom, req.YearTo)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
			respondWithError(w, http.StatusBadRequest, appErr.Message)
			return
		}
		// backend and store failures read the same to the caller: the
		// report could not be produced right now
		respondWithError(w, http.StatusInternalServerError, reportUnavailableMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"district":  req.District,
		"year_from": req.YearFrom,
		"year_to":   req.YearTo,
		"report":    report,
	})
}
