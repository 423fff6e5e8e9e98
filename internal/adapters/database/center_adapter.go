package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/rs/zerolog/log"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/repositories"
	"github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/postgres"
	apperrors "github.com/sooahkim/childcenter-chat/pkg/errors"
)

var centerColumns = []interface{}{
	"center_id", "district", "center_name", "address", "phone",
	"capacity", "lat", "lon", "sat_yn", "fee",
}

// CenterAdapter implements the CenterRepository interface over the
// child_centers table.
type CenterAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCenterAdapter creates a new center adapter
func NewCenterAdapter(client *postgres.Client) repositories.CenterRepository {
	return &CenterAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a center by ID
func (a *CenterAdapter) GetByID(ctx context.Context, id string) (*entities.Center, error) {
	query, args, err := a.db.From("child_centers").
		Select(centerColumns...).
		Where(goqu.C("center_id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build center query", err)
	}

	center, err := scanCenter(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("center with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to get center", err)
	}

	return center, nil
}

// FetchCandidates retrieves coordinate-bearing rows inside the bounding box,
// capped at the candidate limit.
func (a *CenterAdapter) FetchCandidates(ctx context.Context, filter repositories.NearbyFilter) ([]*entities.Center, error) {
	ds := a.db.From("child_centers").
		Select(centerColumns...).
		Where(
			goqu.C("lat").IsNotNull(),
			goqu.C("lon").IsNotNull(),
			goqu.C("lat").Between(goqu.Range(filter.Box.LatMin, filter.Box.LatMax)),
			goqu.C("lon").Between(goqu.Range(filter.Box.LonMin, filter.Box.LonMax)),
		)

	if filter.District != "" {
		ds = ds.Where(goqu.C("district").Eq(filter.District))
	}
	if filter.SatYN == "Y" || filter.SatYN == "N" {
		ds = ds.Where(goqu.C("sat_yn").Eq(filter.SatYN))
	}
	if filter.MinCapacity != nil {
		ds = ds.Where(goqu.C("capacity").Gte(*filter.MinCapacity))
	}
	if filter.CandidateLimit > 0 {
		ds = ds.Limit(uint(filter.CandidateLimit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build candidate query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to fetch candidates", err)
	}
	defer rows.Close()

	centers := []*entities.Center{}
	for rows.Next() {
		center, err := scanCenter(rows)
		if err != nil {
			// a malformed row is skipped, not fatal
			log.Warn().Err(err).Msg("skipping malformed center row")
			continue
		}
		centers = append(centers, center)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("error iterating candidates", err)
	}

	return centers, nil
}

// FindByName matches centers by display name, tolerating spacing and a
// trailing "센터" suffix in the query.
func (a *CenterAdapter) FindByName(ctx context.Context, name string, limit int) ([]*entities.Center, error) {
	clean := strings.ReplaceAll(name, " ", "")
	clean = strings.ReplaceAll(clean, "센터", "")

	query, args, err := a.db.From("child_centers").
		Select(centerColumns...).
		Where(goqu.Or(
			goqu.L("REPLACE(center_name, ' ', '')").Like("%"+clean+"%"),
			goqu.C("center_name").Like("%"+name+"%"),
		)).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build name query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to find centers by name", err)
	}
	defer rows.Close()

	centers := []*entities.Center{}
	for rows.Next() {
		center, err := scanCenter(rows)
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed center row")
			continue
		}
		centers = append(centers, center)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("error iterating centers", err)
	}

	return centers, nil
}

// CapacitySummary aggregates center count and total capacity for a district
func (a *CenterAdapter) CapacitySummary(ctx context.Context, district string) (*entities.CapacitySummary, error) {
	query, args, err := a.db.From("child_centers").
		Select(goqu.COUNT("*"), goqu.L("COALESCE(SUM(capacity), 0)")).
		Where(goqu.C("district").Like("%" + district + "%")).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build summary query", err)
	}

	summary := &entities.CapacitySummary{District: district}
	err = a.client.DB().QueryRowContext(ctx, query, args...).
		Scan(&summary.CenterCount, &summary.TotalCapacity)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to summarize capacity", err)
	}

	return summary, nil
}

// ListAll pages through every center in a stable order
func (a *CenterAdapter) ListAll(ctx context.Context, limit, offset int) ([]*entities.Center, error) {
	query, args, err := a.db.From("child_centers").
		Select(centerColumns...).
		Order(goqu.C("center_id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to list centers", err)
	}
	defer rows.Close()

	centers := []*entities.Center{}
	for rows.Next() {
		center, err := scanCenter(rows)
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed center row")
			continue
		}
		centers = append(centers, center)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("error iterating centers", err)
	}

	return centers, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCenter(row rowScanner) (*entities.Center, error) {
	center := &entities.Center{}
	var capacity sql.NullInt64
	var lat, lon sql.NullFloat64
	var address, phone, satYN, fee sql.NullString

	err := row.Scan(
		&center.CenterID,
		&center.District,
		&center.CenterName,
		&address,
		&phone,
		&capacity,
		&lat,
		&lon,
		&satYN,
		&fee,
	)
	if err != nil {
		return nil, err
	}
	center.Address = address.String
	center.Phone = phone.String

	if capacity.Valid {
		v := int(capacity.Int64)
		center.Capacity = &v
	}
	if lat.Valid {
		v := lat.Float64
		center.Lat = &v
	}
	if lon.Valid {
		v := lon.Float64
		center.Lon = &v
	}
	center.SatYN = satYN.String
	center.Fee = fee.String

	return center, nil
}
