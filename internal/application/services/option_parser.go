package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
)

const (
	// DefaultResults is the result count when the message names none.
	DefaultResults = 3
	// MaxResults caps the user-requested result count.
	MaxResults = 10
	// DefaultRadiusKm is the search radius when the message names none.
	DefaultRadiusKm = 3.0
	// CandidateLimit caps prefilter rows fetched from the store. Not
	// user-settable from text.
	CandidateLimit = 1500
)

var (
	radiusRe      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)km`)
	minCapacityRe = regexp.MustCompile(`정원(\d+)`)
	districtRe    = regexp.MustCompile(`([가-힣]{1,10}구)`)
	countRe       = regexp.MustCompile(`(\d+)\s*개`)
	justOneRe     = regexp.MustCompile(`(딱\s*하나|한\s*군데|한\s*곳|하나만|1개만)`)
)

// ParseOptions extracts a structured query from one free-text message.
// Pure function, no I/O. Number-bearing patterns match against a
// space-stripped copy; the district pattern sees the original message so the
// Hangul run is not merged with neighboring words.
func ParseOptions(msg string) entities.QueryOptions {
	stripped := strings.ReplaceAll(msg, " ", "")

	opts := entities.QueryOptions{
		RadiusKm:       DefaultRadiusKm,
		Limit:          DefaultResults,
		CandidateLimit: CandidateLimit,
		Order:          entities.OrderNearest,
	}

	if strings.Contains(stripped, "토요일") {
		opts.SatYN = "Y"
	}

	if m := radiusRe.FindStringSubmatch(stripped); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			opts.RadiusKm = v
		}
	}

	if m := minCapacityRe.FindStringSubmatch(stripped); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			opts.MinCapacity = &v
		}
	}

	if m := districtRe.FindStringSubmatch(msg); m != nil {
		opts.District = m[1]
	}

	if m := countRe.FindStringSubmatch(msg); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			opts.Limit = v
		}
	}

	// "just one" phrasing always wins over an explicit count
	if justOneRe.MatchString(stripped) {
		opts.Limit = 1
	}

	if opts.Limit < 1 {
		opts.Limit = 1
	}
	if opts.Limit > MaxResults {
		opts.Limit = MaxResults
	}

	return opts
}
