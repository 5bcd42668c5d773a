package scoring

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/linkguard/internal/features"
)

const legitText = "Domain marked as legit"

// evaluateURL applies the URL rules in order. It reports legit when the
// whitelist override fired, in which case no other rule was evaluated.
// ML is applied by the caller.
func evaluateURL(f *features.URL, sector string) (reasons []Reason, legit bool) {
	if f.IsLegit {
		return []Reason{{Text: legitText, Points: -30}}, true
	}

	add := func(text string, points int) {
		reasons = append(reasons, Reason{Text: text, Points: points})
	}

	if f.HostIsIP {
		add("Host is an IP address", 30)
	}
	if f.UncommonPort {
		add(fmt.Sprintf("Uncommon port %d", f.Port), 20)
	}

	if f.Punycode.IsPunycode {
		if f.Punycode.ContainsHomoglyphs {
			add("Suspicious Punycode host with homoglyphs", f.Punycode.Severity)
		} else {
			add("Suspicious Punycode host", f.Punycode.Severity)
		}
	}

	for _, brand := range features.Brands {
		d := f.BrandSimilarity[brand]
		if d == 0 && f.Punycode.ContainsHomoglyphs {
			// the label spells the brand in look-alike letters
			d = 1
		}
		switch d {
		case 1:
			add(fmt.Sprintf("Domain similar to brand '%s'", brand), 35)
		case 2:
			add(fmt.Sprintf("Domain similar to brand '%s'", brand), 25)
		}
	}

	if f.WordHitsCount > 0 {
		add("Suspicious words in URL: "+strings.Join(f.WordHits, ", "), 10)
	}

	if f.TLDSuspicious {
		add(fmt.Sprintf("Suspicious TLD .%s", f.TLD), 20)
	}

	switch age := f.DomainAgeDays; {
	case age >= 0 && age < 30:
		add(fmt.Sprintf("Domain very new (%d days)", age), 30)
	case age >= 0 && age < 180:
		add(fmt.Sprintf("Domain fairly new (%d days)", age), 15)
	}

	if f.SchemeHTTPS && f.SSLValid != nil && !*f.SSLValid {
		add("HTTPS but invalid/expired SSL", 15)
	}

	if f.ContainsAt {
		add("@ symbol in URL", 15)
	}
	if f.Hyphens >= 3 {
		add("Many hyphens in host", 10)
	}
	if f.SubdomainDepth >= 4 {
		add("Deep subdomain nesting", 15)
	}

	switch {
	case f.DigitsRatio > 0.5:
		add("Host mostly digits", 25)
	case f.DigitsRatio > 0.3:
		add("High digits ratio in host", 15)
	}

	switch {
	case f.Length > 120:
		add("Very long URL", 20)
	case f.Length > 75:
		add("Long URL", 10)
	}

	if f.RedirectCount > 3 {
		add(fmt.Sprintf("Excessive redirects (%d)", f.RedirectCount), 10)
	}

	if f.SchemeHTTPS && len(reasons) == 0 {
		add("HTTPS present (safe signal)", -5)
	}
	if f.DomainAgeDays > 365 && len(reasons) == 0 {
		add("Domain older than 1 year (trust signal)", -5)
	}

	reasons = append(reasons, sectorBoost(sector)...)

	if f.Reachable != nil && !*f.Reachable {
		add("URL not reachable", 40)
	}

	return reasons, false
}
