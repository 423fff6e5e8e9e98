package search

import (
	"context"
	"fmt"

	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	tsclient "github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// TypesenseAdapter accelerates center-by-name lookup with typo-tolerant
// text search. Callers fall back to the SQL repository when it is absent
// or errors.
type TypesenseAdapter struct {
	client *tsclient.Client
}

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts a center document
func (a *TypesenseAdapter) Index(ctx context.Context, center *entities.Center) error {
	document := map[string]interface{}{
		"id":          center.CenterID,
		"center_id":   center.CenterID,
		"center_name": center.CenterName,
		"district":    center.District,
	}
	if center.HasLocation() {
		document["location"] = []float64{*center.Lat, *center.Lon}
	}
	if center.Capacity != nil {
		document["capacity"] = *center.Capacity
	}
	if center.SatYN != "" {
		document["sat_yn"] = center.SatYN
	}

	_, err := a.client.Client().Collection(tsclient.CentersCollection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index center: %w", err)
	}
	return nil
}

// FindIDsByName returns center IDs ranked by name-match quality
func (a *TypesenseAdapter) FindIDsByName(ctx context.Context, name string, limit int) ([]string, error) {
	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(name),
		QueryBy: pointer.String("center_name"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.CentersCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search centers: %w", err)
	}

	ids := []string{}
	if result.Hits == nil {
		return ids, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		if id, ok := doc["center_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
