package features

import (
	"context"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/JaimeStill/linkguard/internal/whitelist"
)

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// Punycode describes IDN encoding found in a host.
type Punycode struct {
	IsPunycode         bool   `json:"is_punycode"`
	DecodedHost        string `json:"decoded_host"`
	ContainsHomoglyphs bool   `json:"contains_homoglyphs"`
	Severity           int    `json:"severity"`
}

// URL holds the signals extracted from a web URL.
type URL struct {
	Scheme               string         `json:"scheme"`
	SchemeHTTPS          bool           `json:"scheme_https"`
	ContainsAt           bool           `json:"contains_at"`
	Host                 string         `json:"host"`
	HostIsIP             bool           `json:"host_is_ip"`
	Hyphens              int            `json:"hyphens"`
	Length               int            `json:"length"`
	IsLegit              bool           `json:"is_legit"`
	RegisteredDomain     string         `json:"registered_domain"`
	TLD                  string         `json:"tld"`
	TLDValid             bool           `json:"tld_valid"`
	TLDSuspicious        bool           `json:"tld_suspicious"`
	SubdomainDepth       int            `json:"subdomain_depth"`
	DigitsRatio          float64        `json:"digits_ratio"`
	PathLength           int            `json:"path_length"`
	QueryLength          int            `json:"query_length"`
	FragmentPresent      bool           `json:"fragment_present"`
	PortPresent          bool           `json:"port_present"`
	Port                 int            `json:"port"`
	UncommonPort         bool           `json:"uncommon_port"`
	WordHits             []string       `json:"word_hits"`
	WordHitsCount        int            `json:"word_hits_count"`
	DomainAgeDays        int            `json:"domain_age_days"`
	SSLValid             *bool          `json:"ssl_valid"`
	Homograph            bool           `json:"homograph"`
	Punycode             Punycode       `json:"punycode"`
	BrandSimilarity      map[string]int `json:"brand_similarity"`
	BrandSimilarityScore int            `json:"brand_similarity_score"`
	RedirectCount        int            `json:"redirect_count"`
	Reachable            *bool          `json:"reachable"`
	Probes               Report         `json:"probes"`
}

// URLEnv carries the read-only dependencies of URL extraction.
// A nil Prober skips all network probes.
type URLEnv struct {
	Whitelist *whitelist.List
	TLDs      *TLDSet
	Prober    Prober
}

func (*URL) Kind() Kind { return KindURL }

// ExtractURL computes URL features for raw. Network probes run only when the
// host is not whitelisted and a Prober is configured.
func ExtractURL(ctx context.Context, raw string, env URLEnv) *URL {
	raw = strings.TrimSpace(raw)
	f := &URL{
		Length:          utf8.RuneCountInString(raw),
		ContainsAt:      strings.Contains(raw, "@"),
		WordHits:        []string{},
		DomainAgeDays:   -1,
		BrandSimilarity: map[string]int{},
		Probes:          SkippedReport(),
	}

	lower := strings.ToLower(raw)
	f.WordHits = hits(lower, suspiciousWords)
	f.WordHitsCount = len(f.WordHits)

	input := raw
	if !strings.Contains(input, "://") {
		input = "http://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return f
	}

	f.Scheme = strings.ToLower(u.Scheme)
	f.SchemeHTTPS = f.Scheme == "https"
	f.PathLength = len(u.EscapedPath())
	f.QueryLength = len(u.RawQuery)
	f.FragmentPresent = u.Fragment != ""

	if p := u.Port(); p != "" {
		f.PortPresent = true
		f.Port, _ = strconv.Atoi(p)
		f.UncommonPort = f.Port != 80 && f.Port != 443
	}

	rawHost := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if rawHost == "" {
		return f
	}

	host := rawHost
	if ascii, err := idna.Lookup.ToASCII(rawHost); err == nil && ascii != "" {
		host = ascii
	}

	f.Host = host
	f.HostIsIP = ipv4Pattern.MatchString(host) || net.ParseIP(host) != nil
	f.Hyphens = strings.Count(rawHost, "-")
	f.SubdomainDepth = strings.Count(host, ".")
	f.DigitsRatio = digitRatio(rawHost)
	f.Punycode = punycode(host)
	f.Homograph = rawHost != host || f.Punycode.ContainsHomoglyphs

	f.RegisteredDomain, _ = whitelist.Normalize(host)
	f.IsLegit = env.Whitelist.IsLegit(host)

	if !f.HostIsIP {
		if suffix, _ := publicsuffix.PublicSuffix(host); suffix != "" {
			f.TLD = suffix[strings.LastIndex(suffix, ".")+1:]
		}
		f.TLDValid = env.TLDs.Valid(f.TLD)
		f.TLDSuspicious = has(suspiciousTLDs, f.TLD) || !f.TLDValid

		label := domainLabel(f.RegisteredDomain)
		if f.Punycode.IsPunycode {
			label = skeleton(decodeLabel(label))
		}
		f.BrandSimilarity, f.BrandSimilarityScore = brandDistances(label)
	}

	if f.IsLegit || env.Prober == nil {
		return f
	}

	f.Probes = env.Prober.Probe(ctx, u)
	if f.Probes.DomainAgeDays.Ok() {
		f.DomainAgeDays = f.Probes.DomainAgeDays.Value
	}
	if f.Probes.Redirects.State != Skipped {
		f.RedirectCount = f.Probes.Redirects.Value
	}
	if f.SchemeHTTPS && f.Probes.TLSValid.Ok() {
		v := f.Probes.TLSValid.Value
		f.SSLValid = &v
	}
	if f.Probes.Reachable.Ok() {
		v := f.Probes.Reachable.Value
		f.Reachable = &v
	}

	return f
}

// Lookup exposes URL features by their serialized names.
func (f *URL) Lookup(name string) (Value, bool) {
	switch name {
	case "scheme":
		return str(f.Scheme), true
	case "scheme_https":
		return boolean(f.SchemeHTTPS), true
	case "contains_at":
		return boolean(f.ContainsAt), true
	case "host":
		return str(f.Host), true
	case "host_is_ip":
		return boolean(f.HostIsIP), true
	case "hyphens":
		return num(f.Hyphens), true
	case "length":
		return num(f.Length), true
	case "is_legit":
		return boolean(f.IsLegit), true
	case "registered_domain":
		return str(f.RegisteredDomain), true
	case "tld":
		return str(f.TLD), true
	case "tld_valid":
		return boolean(f.TLDValid), true
	case "tld_suspicious":
		return boolean(f.TLDSuspicious), true
	case "subdomain_depth":
		return num(f.SubdomainDepth), true
	case "digits_ratio":
		return num(f.DigitsRatio), true
	case "path_length":
		return num(f.PathLength), true
	case "query_length":
		return num(f.QueryLength), true
	case "fragment_present":
		return boolean(f.FragmentPresent), true
	case "port_present":
		return boolean(f.PortPresent), true
	case "port":
		return num(f.Port), true
	case "uncommon_port":
		return boolean(f.UncommonPort), true
	case "word_hits":
		return list(f.WordHits), true
	case "word_hits_count":
		return num(f.WordHitsCount), true
	case "domain_age_days":
		return num(f.DomainAgeDays), true
	case "ssl_valid":
		return nullableBool(f.SSLValid), true
	case "homograph":
		return boolean(f.Homograph), true
	case "punycode", "brand_similarity", "probes":
		return mapping(), true
	case "brand_similarity_score":
		return num(f.BrandSimilarityScore), true
	case "redirect_count":
		return num(f.RedirectCount), true
	case "reachable":
		return nullableBool(f.Reachable), true
	}
	return Value{}, false
}

func punycode(host string) Punycode {
	p := Punycode{DecodedHost: host}

	for _, label := range strings.Split(host, ".") {
		if strings.HasPrefix(label, "xn--") {
			p.IsPunycode = true
			break
		}
	}
	if !p.IsPunycode {
		return p
	}

	if decoded, err := idna.Lookup.ToUnicode(host); err == nil {
		p.DecodedHost = decoded
	} else if decoded, err := idna.Punycode.ToUnicode(host); err == nil {
		p.DecodedHost = decoded
	}

	p.ContainsHomoglyphs = containsHomoglyphs(p.DecodedHost)

	p.Severity = 20
	if p.ContainsHomoglyphs {
		p.Severity = 40
	}
	return p
}

func brandDistances(label string) (map[string]int, int) {
	distances := make(map[string]int, len(Brands))
	best := -1
	for _, brand := range Brands {
		d := fuzzy.LevenshteinDistance(label, brand)
		distances[brand] = d
		if best < 0 || d < best {
			best = d
		}
	}
	return distances, best
}

func domainLabel(registered string) string {
	if i := strings.Index(registered, "."); i > 0 {
		return registered[:i]
	}
	return registered
}

// decodeLabel returns the Unicode form of a single xn-- label.
func decodeLabel(label string) string {
	if decoded, err := idna.Punycode.ToUnicode(label); err == nil {
		return decoded
	}
	return label
}

func digitRatio(s string) float64 {
	if s == "" {
		return 0
	}
	var digits, total int
	for _, r := range s {
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return float64(digits) / float64(total)
}
