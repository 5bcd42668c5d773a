package scoring

import (
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/JaimeStill/linkguard/internal/features"
)

const (
	invalidScore  = 99
	invalidPoints = 50
	invalidText   = "Input is not a valid URL"
)

// ValidURL reports whether raw is non-empty, has no whitespace, and has a
// parseable hostname containing at least one dot. A missing scheme is
// treated as http.
func ValidURL(raw string) bool {
	if raw == "" || strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return false
	}

	input := raw
	if !strings.Contains(input, "://") {
		input = "http://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return false
	}

	host := u.Hostname()
	return host != "" && strings.Contains(host, ".")
}

// invalidRecord is the fixed result for input that fails the validity gate.
func invalidRecord(a Artifact, at time.Time) *Record {
	return &Record{
		Type:      a.Kind,
		URL:       a.Raw,
		Platform:  a.Platform,
		Sector:    a.Sector,
		Features:  features.Empty{Type: a.Kind},
		Reasons:   []Reason{{Text: invalidText, Points: invalidPoints}},
		Score:     invalidScore,
		Status:    HighRisk,
		Timestamp: at.UTC().Truncate(time.Second),
	}
}

func isInvalid(a Artifact) bool {
	switch a.Kind {
	case features.KindURL:
		return !ValidURL(a.Raw)
	default:
		return strings.TrimSpace(a.Raw) == ""
	}
}
