package scoring

import (
	"time"

	"github.com/JaimeStill/linkguard/internal/features"
)

// Status is the categorical label derived from a score.
type Status string

const (
	Safe       Status = "Safe"
	MediumRisk Status = "Medium Risk"
	HighRisk   Status = "High Risk"
)

// Reason is one weighted explanation contributing to a score.
type Reason struct {
	Text   string `json:"reason"`
	Points int    `json:"points"`
}

// Artifact is a candidate to be scored.
type Artifact struct {
	Kind     features.Kind `json:"type"`
	Raw      string        `json:"url"`
	Platform string        `json:"platform,omitempty"`
	Sector   string        `json:"sector,omitempty"`
}

// Record is the result of scoring one artifact. Records are built once
// and never modified.
type Record struct {
	Type      features.Kind `json:"type"`
	URL       string        `json:"url"`
	Platform  string        `json:"platform,omitempty"`
	Sector    string        `json:"sector"`
	Features  features.Set  `json:"features"`
	Reasons   []Reason      `json:"reasons"`
	Score     int           `json:"score"`
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

func newRecord(a Artifact, set features.Set, reasons []Reason, at time.Time) *Record {
	if reasons == nil {
		reasons = []Reason{}
	}
	score, status := Aggregate(reasons)
	return &Record{
		Type:      a.Kind,
		URL:       a.Raw,
		Platform:  a.Platform,
		Sector:    a.Sector,
		Features:  set,
		Reasons:   reasons,
		Score:     score,
		Status:    status,
		Timestamp: at.UTC().Truncate(time.Second),
	}
}
