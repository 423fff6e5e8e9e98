package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/postgres"
	apperrors "github.com/sooahkim/childcenter-chat/pkg/errors"
)

// ForecastAdapter implements ForecastRepository over the region_forecast table.
type ForecastAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewForecastAdapter creates a new forecast adapter
func NewForecastAdapter(client *postgres.Client) repositories.ForecastRepository {
	return &ForecastAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListForecast returns predicted child-user rows for a district and year range
func (a *ForecastAdapter) ListForecast(ctx context.Context, district string, yearFrom, yearTo int) ([]repositories.ForecastRow, error) {
	query, args, err := a.db.From("region_forecast").
		Select("year", "predicted_child_user", "pred_child_user_yoy_pct").
		Where(
			goqu.C("district").Eq(district),
			goqu.C("year").Between(goqu.Range(yearFrom, yearTo)),
		).
		Order(goqu.C("year").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build forecast query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list forecast", err)
	}
	defer rows.Close()

	result := []repositories.ForecastRow{}
	for rows.Next() {
		var row repositories.ForecastRow
		var pct sql.NullFloat64
		if err := rows.Scan(&row.Year, &row.PredictedChildUser, &pct); err != nil {
			return nil, apperrors.NewInternalError("failed to scan forecast row", err)
		}
		if pct.Valid {
			v := pct.Float64
			row.YoYPct = &v
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("error iterating forecast rows", err)
	}

	return result, nil
}
