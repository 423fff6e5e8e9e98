package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/providers"
	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
	"github.com/sooahkim/childcenter-chat/pkg/errors"
)

const reportPromptTmpl = `너는 지자체 아동복지 담당자를 위한 보고서 작성 비서다.
아래 [데이터 요약]과 [근거 자료]만 사용해서 "%s 지역아동센터 운영 보고서"를 한국어로 작성한다.
데이터에 없는 내용은 "추가 확인 필요"로 표기한다. 근거를 인용할 때는 근거ID(G1, G2, ...)를 붙인다.
[데이터 요약]
%s
[근거 자료]
%s
### Response:
`

// ReportService builds the district operations report: deterministic facts
// from the store, supporting passages from retrieval, and a generative
// write-up over both.
type ReportService struct {
	forecast      repositories.ForecastRepository
	centers       repositories.CenterRepository
	policyDocs    providers.PassageRetriever
	dbFacts       providers.PassageRetriever
	llm           providers.LLMProvider
	reportTimeout time.Duration
}

// NewReportService creates a new report service. The retrievers may be nil;
// missing evidence degrades to the empty-evidence block.
func NewReportService(
	forecast repositories.ForecastRepository,
	centers repositories.CenterRepository,
	policyDocs providers.PassageRetriever,
	dbFacts providers.PassageRetriever,
	llm providers.LLMProvider,
	reportTimeout time.Duration,
) *ReportService {
	if reportTimeout <= 0 {
		reportTimeout = 120 * time.Second
	}
	return &ReportService{
		forecast:      forecast,
		centers:       centers,
		policyDocs:    policyDocs,
		dbFacts:       dbFacts,
		llm:           llm,
		reportTimeout: reportTimeout,
	}
}

// Generate produces the report text for one district and year range. Store
// or generation failures are hard errors; retrieval failures are soft.
func (s *ReportService) Generate(ctx context.Context, district string, yearFrom, yearTo int) (string, error) {
	if district == "" {
		return "", errors.NewValidationError("district is required")
	}
	if s.llm == nil {
		return "", errors.NewUnavailableError("report generation backend is not configured", nil)
	}

	facts, err := s.buildFacts(ctx, district, yearFrom, yearTo)
	if err != nil {
		return "", err
	}

	evidence := FormatEvidenceBlock(s.gatherEvidence(ctx, district))

	llmCtx, cancel := context.WithTimeout(ctx, s.reportTimeout)
	defer cancel()

	raw, err := s.llm.Invoke(llmCtx, fmt.Sprintf(reportPromptTmpl, district, facts, evidence), 900, "")
	if err != nil {
		return "", errors.NewExternalError("report generation failed", err)
	}

	report := StripGenerationMarkers(raw)
	if report == "" {
		return "", errors.NewExternalError("report generation returned empty output", nil)
	}
	return report, nil
}

func (s *ReportService) buildFacts(ctx context.Context, district string, yearFrom, yearTo int) (string, error) {
	rows, err := s.forecast.ListForecast(ctx, district, yearFrom, yearTo)
	if err != nil {
		return "", errors.NewUnavailableError("forecast query failed", err)
	}

	parts := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		yoy := "추가 확인 필요"
		if row.YoYPct != nil {
			yoy = fmt.Sprintf("%.1f%%", *row.YoYPct)
		}
		parts = append(parts, fmt.Sprintf("%d년 예측 이용자수 %d명 전년 대비 %s",
			row.Year, row.PredictedChildUser, yoy))
	}

	summary, err := s.centers.CapacitySummary(ctx, district)
	if err != nil {
		return "", errors.NewUnavailableError("capacity summary query failed", err)
	}
	parts = append(parts, fmt.Sprintf("센터 수 %d개 총 정원 %d명", summary.CenterCount, summary.TotalCapacity))

	return strings.Join(parts, " / "), nil
}

// gatherEvidence pulls supporting passages from both collections. Failures
// log and contribute nothing.
func (s *ReportService) gatherEvidence(ctx context.Context, district string) []entities.EvidenceDoc {
	docs := []entities.EvidenceDoc{}

	if s.policyDocs != nil {
		policy, err := s.policyDocs.Retrieve(ctx, district+" 지원 운영", 2)
		if err != nil {
			log.Warn().Err(err).Str("district", district).Msg("policy passage retrieval failed")
		} else {
			docs = append(docs, policy...)
		}
	}

	if s.dbFacts != nil {
		facts, err := s.dbFacts.Retrieve(ctx, district+" 이용자수", 3)
		if err != nil {
			log.Warn().Err(err).Str("district", district).Msg("fact passage retrieval failed")
		} else {
			docs = append(docs, facts...)
		}
	}

	return docs
}
