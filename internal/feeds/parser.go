package feeds

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Threat labels assigned when a feed format carries none.
const (
	LabelPhishing = "phishing"
	LabelMalware  = "malware"
	LabelUnknown  = "unknown"
)

// Entry is one URL collected from a feed.
type Entry struct {
	URL    string `json:"url"`
	Threat string `json:"threat"`
}

// Parser extracts entries from a threat feed format.
type Parser interface {
	Parse(r io.Reader) ([]Entry, error)
}

// URLhausParser parses the URLhaus JSON export: an object of arrays of
// {url, threat} objects. Keys are visited in sorted order.
type URLhausParser struct{}

func (p *URLhausParser) Parse(r io.Reader) ([]Entry, error) {
	var doc map[string][]Entry
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := newDedupe()
	for _, k := range keys {
		for _, e := range doc[k] {
			threat := strings.TrimSpace(e.Threat)
			if threat == "" {
				threat = LabelUnknown
			}
			d.add(e.URL, threat)
		}
	}
	return d.entries, nil
}

// AdblockParser parses adblock filter lists. Only domain anchors of the form
// "||domain^" are kept; "!" lines are comments.
type AdblockParser struct{}

func (p *AdblockParser) Parse(r io.Reader) ([]Entry, error) {
	d := newDedupe()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
			continue
		}
		rest, ok := strings.CutPrefix(line, "||")
		if !ok {
			continue
		}
		domain, _, ok := strings.Cut(rest, "^")
		if !ok || domain == "" {
			continue
		}
		d.add("http://"+strings.ToLower(domain), LabelPhishing)
	}
	return d.entries, scanner.Err()
}

// ListParser parses one-URL-per-line feeds with "#" comments.
type ListParser struct{}

func (p *ListParser) Parse(r io.Reader) ([]Entry, error) {
	d := newDedupe()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.add(line, LabelPhishing)
	}
	return d.entries, scanner.Err()
}

// HostfileParser parses hosts-file format: "0.0.0.0 domain" or
// "127.0.0.1 domain".
type HostfileParser struct{}

func (p *HostfileParser) Parse(r io.Reader) ([]Entry, error) {
	d := newDedupe()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		domain := strings.ToLower(fields[1])
		switch domain {
		case "localhost", "localhost.localdomain", "broadcasthost", "local", "0.0.0.0":
			continue
		}
		d.add("http://"+domain, LabelMalware)
	}
	return d.entries, scanner.Err()
}

// ParserForFormat returns the parser for a feed format name. An empty
// format selects the URL list parser.
func ParserForFormat(format string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "urlhaus", "json":
		return &URLhausParser{}, nil
	case "adblock":
		return &AdblockParser{}, nil
	case "", "list", "txt":
		return &ListParser{}, nil
	case "hostfile", "hosts":
		return &HostfileParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// dedupe keeps one entry per URL at its first position. A repeated URL
// replaces the stored threat label.
type dedupe struct {
	index   map[string]int
	entries []Entry
}

func newDedupe() *dedupe {
	return &dedupe{index: make(map[string]int)}
}

func (d *dedupe) add(url, threat string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	if at, ok := d.index[url]; ok {
		d.entries[at].Threat = threat
		return
	}
	d.index[url] = len(d.entries)
	d.entries = append(d.entries, Entry{URL: url, Threat: threat})
}
