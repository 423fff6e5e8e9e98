package services

import (
	"context"
	"math"
	"sort"

	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/observability"
	"github.com/sooahkim/childcenter-chat/pkg/errors"
)

const earthRadiusKm = 6371.0

// GeoSearchService finds centers around a coordinate. Candidates come from a
// cheap bounding-box prefilter in the store; exact distances are computed and
// filtered here.
type GeoSearchService struct {
	repo    repositories.CenterRepository
	metrics *observability.Metrics
}

// NewGeoSearchService creates a new geo search service
func NewGeoSearchService(repo repositories.CenterRepository, metrics *observability.Metrics) *GeoSearchService {
	return &GeoSearchService{repo: repo, metrics: metrics}
}

// BoundingBoxAround returns a rectangle that fully contains the radius around
// the point. The longitude delta widens with latitude; the cosine is floored
// at 0.2 to keep the box finite near the poles.
func BoundingBoxAround(lat, lon, radiusKm float64) repositories.BoundingBox {
	latDelta := radiusKm / 111.0
	lonDelta := radiusKm / (111.0 * math.Max(0.2, math.Cos(lat*math.Pi/180)))
	return repositories.BoundingBox{
		LatMin: lat - latDelta,
		LatMax: lat + latDelta,
		LonMin: lon - lonDelta,
		LonMax: lon + lonDelta,
	}
}

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// SearchNearby returns up to opts.Limit centers within opts.RadiusKm of the
// point, sorted by distance per opts.Order. Candidates without coordinates
// are skipped. Distances are rounded to 3 decimals.
func (s *GeoSearchService) SearchNearby(ctx context.Context, lat, lon float64, opts entities.QueryOptions) ([]entities.ScoredCenter, error) {
	filter := repositories.NearbyFilter{
		Box:            BoundingBoxAround(lat, lon, opts.RadiusKm),
		District:       opts.District,
		SatYN:          opts.SatYN,
		MinCapacity:    opts.MinCapacity,
		CandidateLimit: opts.CandidateLimit,
	}
	if filter.CandidateLimit <= 0 {
		filter.CandidateLimit = CandidateLimit
	}

	candidates, err := s.repo.FetchCandidates(ctx, filter)
	if err != nil {
		return nil, errors.NewUnavailableError("center store query failed", err)
	}

	scored := make([]entities.ScoredCenter, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasLocation() {
			continue
		}
		d := HaversineKm(lat, lon, *c.Lat, *c.Lon)
		if d > opts.RadiusKm {
			continue
		}
		scored = append(scored, entities.ScoredCenter{
			Center:     *c,
			DistanceKm: math.Round(d*1000) / 1000,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if opts.Order == entities.OrderFarthest {
			return scored[i].DistanceKm > scored[j].DistanceKm
		}
		return scored[i].DistanceKm < scored[j].DistanceKm
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultResults
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}

	observability.RecordGeoSearch(ctx, s.metrics, len(scored))
	return scored, nil
}
