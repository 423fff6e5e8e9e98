package repositories

import (
	"context"

	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
)

// BoundingBox is the rectangular coordinate prefilter applied in SQL before
// exact distance ranking. It is a superset of the radius circle.
type BoundingBox struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// NearbyFilter describes the candidate prefilter query.
type NearbyFilter struct {
	Box            BoundingBox
	District       string // equality filter when non-empty
	SatYN          string // "Y"/"N" equality filter when set
	MinCapacity    *int   // capacity floor when non-nil
	CandidateLimit int    // maximum rows fetched
}

// CenterRepository is the facility store boundary.
type CenterRepository interface {
	// GetByID returns a single center or a NOT_FOUND error.
	GetByID(ctx context.Context, id string) (*entities.Center, error)

	// FetchCandidates returns coordinate-bearing rows inside the bounding
	// box, capped at the candidate limit. May include false positives near
	// the box corners; callers re-rank by exact distance.
	FetchCandidates(ctx context.Context, filter NearbyFilter) ([]*entities.Center, error)

	// FindByName matches centers by display name, tolerating spacing and a
	// trailing "센터" suffix in the query.
	FindByName(ctx context.Context, name string, limit int) ([]*entities.Center, error)

	// CapacitySummary aggregates center count and total capacity for a district.
	CapacitySummary(ctx context.Context, district string) (*entities.CapacitySummary, error)

	// ListAll pages through every center, used by the search indexer.
	ListAll(ctx context.Context, limit, offset int) ([]*entities.Center, error)
}

// ForecastRow is one year of predicted child-user demand for a district.
type ForecastRow struct {
	Year               int
	PredictedChildUser int
	YoYPct             *float64
}

// ForecastRepository backs the district operations report.
type ForecastRepository interface {
	ListForecast(ctx context.Context, district string, yearFrom, yearTo int) ([]ForecastRow, error)
}
