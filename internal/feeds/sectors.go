package feeds

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/JaimeStill/linkguard/internal/scoring"
)

var defaultSectors = map[string][]string{
	"banking":   {"bank", "banking", "credit", "loan", "card"},
	"finance":   {"finance", "invest", "crypto", "wallet", "trading"},
	"payment":   {"pay", "paypal", "checkout", "billing", "invoice"},
	"social":    {"facebook", "instagram", "tiktok", "twitter", "social"},
	"messaging": {"whatsapp", "telegram", "signal", "messenger"},
	"email":     {"mail", "outlook", "gmail", "webmail"},
}

// Sectors maps sector names to URL keywords.
type Sectors struct {
	names    []string
	keywords map[string][]string
}

// NewSectors builds a keyword map. Sectors are matched in name order.
func NewSectors(m map[string][]string) *Sectors {
	s := &Sectors{keywords: make(map[string][]string, len(m))}
	for name, words := range m {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				s.keywords[name] = append(s.keywords[name], w)
			}
		}
		if _, ok := s.keywords[name]; ok {
			s.names = append(s.names, name)
		}
	}
	sort.Strings(s.names)
	return s
}

// DefaultSectors returns the built-in keyword map.
func DefaultSectors() *Sectors {
	return NewSectors(defaultSectors)
}

// ParseSectors reads a JSON object of sector name to keyword array.
func ParseSectors(r io.Reader) (*Sectors, error) {
	var m map[string][]string
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSector, err)
	}
	return NewSectors(m), nil
}

// LoadSectors reads a sectors file. An empty path returns the defaults.
func LoadSectors(path string) (*Sectors, error) {
	if path == "" {
		return DefaultSectors(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sectors: %w", err)
	}
	defer f.Close()

	return ParseSectors(f)
}

// Detect returns the first sector with a keyword contained in raw, or the
// general sector.
func (s *Sectors) Detect(raw string) string {
	lower := strings.ToLower(raw)
	for _, name := range s.names {
		for _, w := range s.keywords[name] {
			if strings.Contains(lower, w) {
				return name
			}
		}
	}
	return scoring.DefaultSector
}

// Len returns the number of sectors.
func (s *Sectors) Len() int {
	return len(s.names)
}
