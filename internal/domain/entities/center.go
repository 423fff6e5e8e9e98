package entities

// Center represents a community child center as stored in the facility DB.
// Records without coordinates are kept for lookups but excluded from geo search.
type Center struct {
	CenterID   string   `json:"center_id" db:"center_id"`
	District   string   `json:"district" db:"district"`
	CenterName string   `json:"center_name" db:"center_name"`
	Address    string   `json:"address" db:"address"`
	Phone      string   `json:"phone" db:"phone"`
	Capacity   *int     `json:"capacity,omitempty" db:"capacity"`
	Lat        *float64 `json:"lat,omitempty" db:"lat"`
	Lon        *float64 `json:"lon,omitempty" db:"lon"`
	SatYN      string   `json:"sat_yn,omitempty" db:"sat_yn"`
	Fee        string   `json:"fee,omitempty" db:"fee"`
}

// HasLocation reports whether the record carries usable coordinates.
func (c *Center) HasLocation() bool {
	return c.Lat != nil && c.Lon != nil
}

// ScoredCenter is a Center plus the exact great-circle distance from the
// query origin. Produced only by the geo search engine, never persisted.
type ScoredCenter struct {
	Center
	DistanceKm float64 `json:"distance_km"`
}

// SortOrder controls geo search ranking direction.
type SortOrder string

const (
	OrderNearest  SortOrder = "near"
	OrderFarthest SortOrder = "far"
)

// QueryOptions is the structured query derived from one chat message.
type QueryOptions struct {
	SatYN          string    // "Y", "N" or "" (no filter)
	RadiusKm       float64   // > 0, default 3.0
	MinCapacity    *int      // capacity floor, nil when absent
	District       string    // district token, "" when absent
	Limit          int       // requested result count, clamped to [1, MaxResults]
	CandidateLimit int       // prefilter row cap, fixed
	Order          SortOrder // nearest-first unless RECO_FAR
}

// CapacitySummary aggregates center supply for one district.
type CapacitySummary struct {
	District      string `json:"district"`
	CenterCount   int    `json:"center_count"`
	TotalCapacity int    `json:"total_capacity"`
}
