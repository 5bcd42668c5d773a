// Package feeds parses threat feeds and scores their URLs as a batch.
package feeds

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JaimeStill/linkguard/internal/batch"
	"github.com/JaimeStill/linkguard/internal/features"
	"github.com/JaimeStill/linkguard/internal/scoring"
)

// Options control a feed ingestion run.
type Options struct {
	Format  string
	Source  string
	Sectors *Sectors
	Workers int
}

// Report summarizes an ingestion run.
type Report struct {
	Source      string         `json:"source"`
	Format      string         `json:"format"`
	Entries     int            `json:"entries"`
	Scored      int            `json:"scored"`
	Saved       int            `json:"saved"`
	ByStatus    map[string]int `json:"by_status"`
	CollectedAt time.Time      `json:"collected_at"`
	Results     []batch.Result `json:"-"`
}

// Items converts feed entries into batch items keyed by URL. Each entry is
// routed to the artifact kind its path implies and assigned a sector from
// its keywords.
func Items(entries []Entry, source string, sectors *Sectors) []batch.Item {
	if sectors == nil {
		sectors = DefaultSectors()
	}

	items := make([]batch.Item, 0, len(entries))
	for _, e := range entries {
		kind := features.Classify(e.URL)
		a := scoring.Artifact{
			Kind:   kind,
			Raw:    e.URL,
			Sector: sectors.Detect(e.URL),
		}
		if kind == features.KindApp {
			a.Platform = platformFor(e.URL)
		}
		items = append(items, batch.Item{
			ID:       e.URL,
			Artifact: a,
			Source:   source,
			Label:    e.Threat,
		})
	}
	return items
}

// Ingest parses r in the configured format and scores every entry.
func Ingest(ctx context.Context, scorer batch.Scorer, r io.Reader, opts Options) (*Report, error) {
	parser, err := ParserForFormat(opts.Format)
	if err != nil {
		return nil, err
	}

	entries, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := opts.Source
	if source == "" {
		source = strings.ToLower(opts.Format)
	}
	if source == "" {
		source = "feed"
	}

	results, err := batch.Run(ctx, scorer, Items(entries, source, opts.Sectors), opts.Workers)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Source:      source,
		Format:      opts.Format,
		Entries:     len(entries),
		Scored:      len(results),
		ByStatus:    make(map[string]int),
		CollectedAt: time.Now().UTC().Truncate(time.Second),
		Results:     results,
	}
	for _, res := range results {
		report.ByStatus[string(res.Record.Status)]++
	}
	return report, nil
}

func platformFor(raw string) string {
	if strings.HasSuffix(strings.ToLower(strings.SplitN(raw, "?", 2)[0]), ".ipa") {
		return "ios"
	}
	return "android"
}
