package features

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// IANAListURL is the authoritative top-level domain list.
const IANAListURL = "https://data.iana.org/TLD/tlds-alpha-by-domain.txt"

var fallbackTLDs = []string{
	"com", "org", "net", "edu", "gov", "mil", "int", "info", "biz", "xyz",
	"ai", "io", "co", "app", "dev", "me", "tv", "us", "uk", "ca", "au",
	"de", "fr", "es", "it", "nl", "se", "no", "ch", "at", "be", "pl",
	"ru", "cn", "jp", "kr", "in", "br", "mx", "za", "ng", "ke", "eu",
	"top", "online", "site", "shop", "store", "club", "buzz", "tk", "ml",
	"ga", "cf", "gq",
}

// TLDSet is an immutable set of known-valid top-level domains. Labels
// outside the set are still valid when the public suffix list compiled
// into x/net lists them as ICANN top-level domains.
type TLDSet struct {
	tlds map[string]struct{}
}

// NewTLDSet builds a set from the given labels, lowercased.
func NewTLDSet(tlds ...string) *TLDSet {
	s := &TLDSet{tlds: make(map[string]struct{}, len(tlds))}
	for _, t := range tlds {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			s.tlds[t] = struct{}{}
		}
	}
	return s
}

// DefaultTLDs returns the static fallback set used until a refresh.
func DefaultTLDs() *TLDSet {
	return NewTLDSet(fallbackTLDs...)
}

// Valid reports whether tld is a known top-level domain.
func (s *TLDSet) Valid(tld string) bool {
	tld = strings.ToLower(strings.TrimSpace(tld))
	if tld == "" || strings.Contains(tld, ".") {
		return false
	}
	if s != nil {
		if _, ok := s.tlds[tld]; ok {
			return true
		}
	}
	return icannTLD(tld)
}

func icannTLD(tld string) bool {
	suffix, icann := publicsuffix.PublicSuffix("example." + tld)
	return icann && (suffix == tld || strings.HasSuffix(suffix, "."+tld))
}

// Len reports the number of known TLDs.
func (s *TLDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tlds)
}

// ParseTLDs reads the IANA list format: one TLD per line, # comments.
func ParseTLDs(r io.Reader) (*TLDSet, error) {
	var tlds []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tlds = append(tlds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tld list: %w", err)
	}
	if len(tlds) == 0 {
		return nil, fmt.Errorf("tld list is empty")
	}
	return NewTLDSet(tlds...), nil
}

// FetchTLDs downloads and parses the TLD list at listURL.
func FetchTLDs(ctx context.Context, client *http.Client, listURL string) (*TLDSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build tld request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tld list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tld list: HTTP %d", resp.StatusCode)
	}

	return ParseTLDs(io.LimitReader(resp.Body, 1<<20))
}
