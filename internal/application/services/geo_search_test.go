package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/sooahkim/childcenter-chat/internal/application/services"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
	apperrors "github.com/sooahkim/childcenter-chat/pkg/errors"
)

// Mocks

type MockCenterRepository struct {
	mock.Mock
}

func (m *MockCenterRepository) GetByID(ctx context.Context, id string) (*entities.Center, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Center), args.Error(1)
}

func (m *MockCenterRepository) FetchCandidates(ctx context.Context, filter repositories.NearbyFilter) ([]*entities.Center, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Center), args.Error(1)
}

func (m *MockCenterRepository) FindByName(ctx context.Context, name string, limit int) ([]*entities.Center, error) {
	args := m.Called(ctx, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Center), args.Error(1)
}

func (m *MockCenterRepository) ListAll(ctx context.Context, limit, offset int) ([]*entities.Center, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Center), args.Error(1)
}

func (m *MockCenterRepository) CapacitySummary(ctx context.Context, district string) (*entities.CapacitySummary, error) {
	args := m.Called(ctx, district)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CapacitySummary), args.Error(1)
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func centerAt(id, name string, lat, lon float64) *entities.Center {
	return &entities.Center{
		CenterID:   id,
		CenterName: name,
		District:   "강남구",
		Lat:        ptrFloat(lat),
		Lon:        ptrFloat(lon),
	}
}

// Tests

func TestGeoSearchService_SearchNearby(t *testing.T) {
	// Seoul city hall
	lat, lon := 37.5663, 126.9779

	t.Run("ranks by distance and truncates to limit", func(t *testing.T) {
		repo := new(MockCenterRepository)
		svc := services.NewGeoSearchService(repo, nil)

		repo.On("FetchCandidates", mock.Anything, mock.Anything).Return([]*entities.Center{
			centerAt("c-far", "먼센터", lat+0.02, lon),
			centerAt("c-near", "가까운센터", lat+0.001, lon),
			centerAt("c-mid", "중간센터", lat+0.01, lon),
		}, nil)

		results, err := svc.SearchNearby(context.Background(), lat, lon, entities.QueryOptions{
			RadiusKm: 3.0,
			Limit:    2,
			Order:    entities.OrderNearest,
		})

		assert.NoError(t, err)
		if assert.Len(t, results, 2) {
			assert.Equal(t, "c-near", results[0].CenterID)
			assert.Equal(t, "c-mid", results[1].CenterID)
			assert.Less(t, results[0].DistanceKm, results[1].DistanceKm)
		}
	})

	t.Run("farthest order reverses the ranking", func(t *testing.T) {
		repo := new(MockCenterRepository)
		svc := services.NewGeoSearchService(repo, nil)

		repo.On("FetchCandidates", mock.Anything, mock.Anything).Return([]*entities.Center{
			centerAt("c-near", "가까운센터", lat+0.001, lon),
			centerAt("c-far", "먼센터", lat+0.02, lon),
		}, nil)

		results, err := svc.SearchNearby(context.Background(), lat, lon, entities.QueryOptions{
			RadiusKm: 5.0,
			Limit:    2,
			Order:    entities.OrderFarthest,
		})

		assert.NoError(t, err)
		if assert.Len(t, results, 2) {
			assert.Equal(t, "c-far", results[0].CenterID)
		}
	})

	t.Run("drops candidates outside the radius", func(t *testing.T) {
		repo := new(MockCenterRepository)
		svc := services.NewGeoSearchService(repo, nil)

		// ~0.09 deg of latitude is ~10km, outside a 3km radius but a
		// possible bounding-box corner false positive
		repo.On("FetchCandidates", mock.Anything, mock.Anything).Return([]*entities.Center{
			centerAt("c-in", "안쪽센터", lat+0.001, lon),
			centerAt("c-out", "바깥센터", lat+0.09, lon),
		}, nil)

		results, err := svc.SearchNearby(context.Background(), lat, lon, entities.QueryOptions{
			RadiusKm: 3.0,
			Limit:    5,
		})

		assert.NoError(t, err)
		if assert.Len(t, results, 1) {
			assert.Equal(t, "c-in", results[0].CenterID)
		}
	})

	t.Run("skips candidates without coordinates", func(t *testing.T) {
		repo := new(MockCenterRepository)
		svc := services.NewGeoSearchService(repo, nil)

		noLocation := &entities.Center{CenterID: "c-null", CenterName: "좌표없음"}
		repo.On("FetchCandidates", mock.Anything, mock.Anything).Return([]*entities.Center{
			noLocation,
			centerAt("c-in", "안쪽센터", lat+0.001, lon),
		}, nil)

		results, err := svc.SearchNearby(context.Background(), lat, lon, entities.QueryOptions{
			RadiusKm: 3.0,
			Limit:    5,
		})

		assert.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		repo := new(MockCenterRepository)
		svc := services.NewGeoSearchService(repo, nil)

		repo.On("FetchCandidates", mock.Anything, mock.Anything).Return([]*entities.Center{}, nil)

		results, err := svc.SearchNearby(context.Background(), lat, lon, entities.QueryOptions{
			RadiusKm: 3.0,
			Limit:    3,
		})

		assert.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("store failure surfaces as unavailable", func(t *testing.T) {
		repo := new(MockCenterRepository)
		svc := services.NewGeoSearchService(repo, nil)

		repo.On("FetchCandidates", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		_, err := svc.SearchNearby(context.Background(), lat, lon, entities.QueryOptions{
			RadiusKm: 3.0,
			Limit:    3,
		})

		var appErr *apperrors.AppError
		if assert.ErrorAs(t, err, &appErr) {
			assert.Equal(t, apperrors.ErrorTypeUnavailable, appErr.Type)
		}
	})

	t.Run("distances are rounded to three decimals", func(t *testing.T) {
		repo := new(MockCenterRepository)
		svc := services.NewGeoSearchService(repo, nil)

		repo.On("FetchCandidates", mock.Anything, mock.Anything).Return([]*entities.Center{
			centerAt("c-1", "센터", lat+0.0017, lon+0.0013),
		}, nil)

		results, err := svc.SearchNearby(context.Background(), lat, lon, entities.QueryOptions{
			RadiusKm: 3.0,
			Limit:    1,
		})

		assert.NoError(t, err)
		if assert.Len(t, results, 1) {
			rounded := results[0].DistanceKm * 1000
			assert.InDelta(t, rounded, float64(int64(rounded+0.5)), 1e-6)
		}
	})
}

func TestHaversineKm(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		assert.Equal(t, 0.0, services.HaversineKm(37.5, 127.0, 37.5, 127.0))
	})

	t.Run("one degree of latitude is about 111km", func(t *testing.T) {
		d := services.HaversineKm(37.0, 127.0, 38.0, 127.0)
		assert.InDelta(t, 111.2, d, 0.5)
	})

	t.Run("symmetric in its arguments", func(t *testing.T) {
		a := services.HaversineKm(37.5663, 126.9779, 37.4979, 127.0276)
		b := services.HaversineKm(37.4979, 127.0276, 37.5663, 126.9779)
		assert.InDelta(t, a, b, 1e-9)
	})
}

func TestBoundingBoxAround(t *testing.T) {
	t.Run("contains the center point", func(t *testing.T) {
		box := services.BoundingBoxAround(37.5663, 126.9779, 3.0)

		assert.Less(t, box.LatMin, 37.5663)
		assert.Greater(t, box.LatMax, 37.5663)
		assert.Less(t, box.LonMin, 126.9779)
		assert.Greater(t, box.LonMax, 126.9779)
	})

	t.Run("longitude span widens at high latitude", func(t *testing.T) {
		seoul := services.BoundingBoxAround(37.5, 127.0, 3.0)
		arctic := services.BoundingBoxAround(80.0, 127.0, 3.0)

		assert.Greater(t, arctic.LonMax-arctic.LonMin, seoul.LonMax-seoul.LonMin)
	})
}
