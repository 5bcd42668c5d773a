package detections

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/pkg/query"
	"github.com/JaimeStill/linkguard/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "detections", "d").
	Project("id", "ID").
	Project("type", "Type").
	Project("url", "URL").
	Project("platform", "Platform").
	Project("sector", "Sector").
	Project("features", "Features").
	Project("reasons", "Reasons").
	Project("score", "Score").
	Project("status", "Status").
	Project("source", "Source").
	Project("threat_label", "ThreatLabel").
	Project("detected_at", "DetectedAt")

var defaultSort = query.SortField{
	Field:      "DetectedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for detection queries.
// Nil fields are ignored. String fields use exact matching; score bounds
// are inclusive.
type Filters struct {
	Type     *string `json:"type,omitempty"`
	Status   *string `json:"status,omitempty"`
	Sector   *string `json:"sector,omitempty"`
	Source   *string `json:"source,omitempty"`
	MinScore *int    `json:"min_score,omitempty"`
	MaxScore *int    `json:"max_score,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Type", f.Type).
		WhereEquals("Status", f.Status).
		WhereEquals("Sector", f.Sector).
		WhereEquals("Source", f.Source).
		WhereGTE("Score", f.MinScore).
		WhereLTE("Score", f.MaxScore)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unparseable score bounds are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if v := values.Get("type"); v != "" {
		f.Type = &v
	}

	if v := values.Get("status"); v != "" {
		f.Status = &v
	}

	if v := values.Get("sector"); v != "" {
		f.Sector = &v
	}

	if v := values.Get("source"); v != "" {
		f.Source = &v
	}

	if v := values.Get("min_score"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MinScore = &n
		}
	}

	if v := values.Get("max_score"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MaxScore = &n
		}
	}

	return f
}

func scanDetection(s repository.Scanner) (Detection, error) {
	var d Detection
	var featuresRaw, reasonsRaw []byte

	err := s.Scan(
		&d.ID,
		&d.Type,
		&d.URL,
		&d.Platform,
		&d.Sector,
		&featuresRaw,
		&reasonsRaw,
		&d.Score,
		&d.Status,
		&d.Source,
		&d.ThreatLabel,
		&d.DetectedAt,
	)

	if err != nil {
		return d, err
	}

	if len(featuresRaw) > 0 {
		d.Features = json.RawMessage(featuresRaw)
	}

	if len(reasonsRaw) > 0 {
		if err := json.Unmarshal(reasonsRaw, &d.Reasons); err != nil {
			return d, fmt.Errorf("unmarshal reasons: %w", err)
		}
	}

	if d.Reasons == nil {
		d.Reasons = []scoring.Reason{}
	}

	return d, nil
}
