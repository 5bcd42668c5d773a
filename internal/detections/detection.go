// Package detections persists scored artifacts and serves the detection API:
// scoring a single URL, app link, or content link, scoring a batch schema,
// and querying stored detections.
package detections

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/linkguard/internal/batch"
	"github.com/JaimeStill/linkguard/internal/scoring"
)

// Source values recorded for detections created by the API.
const (
	SourceAPI   = "api"
	SourceBatch = "batch"
)

// Detection is a stored scoring result. It mirrors the detections table.
type Detection struct {
	ID          uuid.UUID        `json:"id"`
	Type        string           `json:"type"`
	URL         string           `json:"url"`
	Platform    string           `json:"platform"`
	Sector      string           `json:"sector"`
	Features    json.RawMessage  `json:"features"`
	Reasons     []scoring.Reason `json:"reasons"`
	Score       int              `json:"score"`
	Status      string           `json:"status"`
	Source      string           `json:"source"`
	ThreatLabel string           `json:"threat_label"`
	DetectedAt  time.Time        `json:"detected_at"`
}

// SaveCommand carries a record and its provenance to be persisted.
type SaveCommand struct {
	Record      *scoring.Record
	Source      string
	ThreatLabel string
}

// Scorer scores single artifacts for the detect endpoints.
// *scoring.Engine satisfies it.
type Scorer interface {
	batch.Scorer
	ScoreURL(ctx context.Context, raw, sector string) *scoring.Record
	ScoreApp(ctx context.Context, raw, platform, sector string) *scoring.Record
	ScoreContent(ctx context.Context, raw, sector string) *scoring.Record
}

// Publisher receives each persisted detection. PublishBatch delivers a
// whole saved batch in one write.
type Publisher interface {
	Publish(ctx context.Context, d *Detection) error
	PublishBatch(ctx context.Context, ds []Detection) error
}

// DetectResponse is returned by the detect endpoints. ID is omitted when
// the detection could not be persisted.
type DetectResponse struct {
	ID     *uuid.UUID      `json:"id,omitempty"`
	URL    string          `json:"url"`
	Result *scoring.Record `json:"result"`
}

// DetectURLRequest is the body of POST /detect/url.
type DetectURLRequest struct {
	URL    string `json:"url"`
	Sector string `json:"sector,omitempty"`
}

// DetectAppRequest is the body of POST /detect/app. AppInfo is either a
// link string or an object carrying the link and platform.
type DetectAppRequest struct {
	AppInfo  json.RawMessage `json:"app_info,omitempty"`
	URL      string          `json:"url,omitempty"`
	Platform string          `json:"platform,omitempty"`
	Sector   string          `json:"sector,omitempty"`
}

// DetectContentRequest is the body of POST /detect/content.
type DetectContentRequest struct {
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
	Sector  string `json:"sector,omitempty"`
}

type appInfo struct {
	URL      string `json:"url"`
	Link     string `json:"link"`
	Platform string `json:"platform"`
}

// link resolves the app link and platform. Explicit top-level fields win
// over values inside app_info.
func (r DetectAppRequest) link() (raw, platform string) {
	raw, platform = r.URL, r.Platform

	if len(r.AppInfo) > 0 {
		var s string
		if err := json.Unmarshal(r.AppInfo, &s); err == nil {
			if raw == "" {
				raw = s
			}
		} else {
			var info appInfo
			if err := json.Unmarshal(r.AppInfo, &info); err == nil {
				if raw == "" {
					raw = info.URL
				}
				if raw == "" {
					raw = info.Link
				}
				if platform == "" {
					platform = info.Platform
				}
			}
		}
	}

	return raw, platform
}

func (r DetectContentRequest) link() string {
	if r.Content != "" {
		return r.Content
	}
	return r.URL
}
