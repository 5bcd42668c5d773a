package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/JaimeStill/linkguard/internal/features"
	"github.com/JaimeStill/linkguard/internal/scoring"
)

// Schema is the bucketed input document for batch scoring.
type Schema struct {
	URLs    map[string]Entry `json:"urls,omitempty"`
	Apps    map[string]Entry `json:"apps,omitempty"`
	Content map[string]Entry `json:"content,omitempty"`
}

// Entry is one schema item. Which link field is read depends on the bucket.
type Entry struct {
	URL      string `json:"url,omitempty"`
	Link     string `json:"link,omitempty"`
	Text     string `json:"text,omitempty"`
	Content  string `json:"content,omitempty"`
	Platform string `json:"platform,omitempty"`
	Sector   string `json:"sector,omitempty"`
}

// Scored is the bucketed output document.
type Scored struct {
	URLs    map[string]ScoredEntry `json:"urls"`
	Apps    map[string]ScoredEntry `json:"apps"`
	Content map[string]ScoredEntry `json:"content"`
}

// ScoredEntry wraps a record with the sector it was scored under.
type ScoredEntry struct {
	Sector string          `json:"sector"`
	Score  *scoring.Record `json:"score"`
}

// DecodeSchema reads a schema document.
func DecodeSchema(r io.Reader) (*Schema, error) {
	var s Schema
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &s, nil
}

// Items flattens the schema into batch items: urls, then apps, then
// content, each bucket in id order.
func (s *Schema) Items() []Item {
	var items []Item

	for _, id := range sortedKeys(s.URLs) {
		e := s.URLs[id]
		items = append(items, Item{ID: id, Artifact: scoring.Artifact{
			Kind:   features.KindURL,
			Raw:    first(e.URL, e.Link),
			Sector: e.Sector,
		}})
	}
	for _, id := range sortedKeys(s.Apps) {
		e := s.Apps[id]
		items = append(items, Item{ID: id, Artifact: scoring.Artifact{
			Kind:     features.KindApp,
			Raw:      first(e.Link, e.URL),
			Platform: e.Platform,
			Sector:   e.Sector,
		}})
	}
	for _, id := range sortedKeys(s.Content) {
		e := s.Content[id]
		items = append(items, Item{ID: id, Artifact: scoring.Artifact{
			Kind:   features.KindContent,
			Raw:    first(e.Text, e.Content, e.URL),
			Sector: e.Sector,
		}})
	}

	return items
}

// Bucket places results into the output document by artifact type.
func Bucket(results []Result) *Scored {
	out := &Scored{
		URLs:    map[string]ScoredEntry{},
		Apps:    map[string]ScoredEntry{},
		Content: map[string]ScoredEntry{},
	}

	for _, r := range results {
		entry := ScoredEntry{Sector: r.Record.Sector, Score: r.Record}
		switch r.Record.Type {
		case features.KindApp:
			out.Apps[r.ID] = entry
		case features.KindContent:
			out.Content[r.ID] = entry
		default:
			out.URLs[r.ID] = entry
		}
	}

	return out
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
