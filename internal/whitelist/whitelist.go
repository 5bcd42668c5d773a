// Package whitelist normalizes hosts to their registrable domain and answers
// legitimacy checks against a read-only set of trusted domains.
//
// Only the bare registrable domain and its www alias are considered legitimate.
// A subdomain such as mail.bank.com never matches an entry for bank.com.
package whitelist

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// List is an immutable set of normalized registrable domains.
type List struct {
	domains map[string]struct{}
}

// New builds a List from raw host or URL strings, normalizing each entry.
// Entries that cannot be normalized are dropped.
func New(entries ...string) *List {
	l := &List{domains: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		if d, _ := Normalize(e); d != "" {
			l.domains[d] = struct{}{}
		}
	}
	return l
}

// Empty returns a List with no entries.
func Empty() *List {
	return New()
}

// Parse reads one host or URL per line. Blank lines and lines starting
// with # are skipped.
func Parse(r io.Reader) (*List, error) {
	var entries []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read whitelist: %w", err)
	}
	return New(entries...), nil
}

// Load parses the whitelist file at path.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open whitelist: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Len reports the number of distinct registrable domains.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.domains)
}

// Contains reports whether the registrable domain of hostOrURL is listed,
// regardless of subdomain.
func (l *List) Contains(hostOrURL string) bool {
	if l == nil {
		return false
	}
	d, _ := Normalize(hostOrURL)
	if d == "" {
		return false
	}
	_, ok := l.domains[d]
	return ok
}

// IsLegit reports whether hostOrURL is a listed registrable domain with an
// empty or www subdomain.
func (l *List) IsLegit(hostOrURL string) bool {
	if l == nil {
		return false
	}
	d, bare := Normalize(hostOrURL)
	if d == "" || !bare {
		return false
	}
	_, ok := l.domains[d]
	return ok
}

// Normalize reduces hostOrURL to its registrable domain (domain.suffix).
// The second result is true when the host carries no subdomain other than
// www. Malformed input returns ("", false).
func Normalize(hostOrURL string) (string, bool) {
	host := Host(hostOrURL)
	if host == "" {
		return "", false
	}

	if net.ParseIP(host) != nil {
		return host, true
	}

	stripped := strings.TrimPrefix(host, "www.")

	registrable, err := publicsuffix.EffectiveTLDPlusOne(stripped)
	if err != nil {
		return stripped, true
	}

	sub := strings.TrimSuffix(stripped, registrable)
	return registrable, sub == ""
}

// Host extracts the lowercase ASCII host from a host or URL string.
// It strips scheme, credentials, port, path, and any trailing dot.
func Host(hostOrURL string) string {
	s := strings.ToLower(strings.TrimSpace(hostOrURL))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" {
		return ""
	}

	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	return host
}
