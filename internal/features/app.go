package features

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/net/publicsuffix"
)

// App holds the signals extracted from a mobile-app distribution link.
type App struct {
	Platform           string   `json:"platform"`
	Host               string   `json:"host"`
	IsOfficialStore    bool     `json:"is_official_store"`
	DirectAPK          bool     `json:"direct_apk"`
	DirectIPA          bool     `json:"direct_ipa"`
	ScamHits           []string `json:"scam_hits"`
	Shortened          bool     `json:"shortened"`
	ContainsIDParam    bool     `json:"contains_id_param"`
	Length             int      `json:"length"`
	HTTPS              bool     `json:"https"`
	StoreImpersonation bool     `json:"store_impersonation"`
}

func (*App) Kind() Kind { return KindApp }

// NormalizePlatform maps a platform tag to android or ios, defaulting to android.
func NormalizePlatform(platform string) string {
	switch strings.ToLower(strings.TrimSpace(platform)) {
	case "ios", "iphone", "ipad", "apple":
		return "ios"
	default:
		return "android"
	}
}

// ExtractApp computes app-link features for raw on the given platform.
func ExtractApp(raw, platform string) *App {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)

	f := &App{
		Platform: NormalizePlatform(platform),
		Length:   utf8.RuneCountInString(raw),
		HTTPS:    strings.HasPrefix(lower, "https://"),
		ScamHits: hits(lower, scamWords),
	}

	input := lower
	if !strings.Contains(input, "://") {
		input = "http://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return f
	}

	f.Host = strings.TrimSuffix(u.Hostname(), ".")
	f.IsOfficialStore = isOfficialStore(f.Host, f.Platform)

	file := path.Base(u.Path)
	f.DirectAPK = strings.HasSuffix(file, ".apk")
	f.DirectIPA = strings.HasSuffix(file, ".ipa")

	for _, s := range shorteners {
		if f.Host == s || strings.HasSuffix(f.Host, "."+s) {
			f.Shortened = true
			break
		}
	}

	q := u.Query()
	for key := range q {
		if key == "id" || strings.HasSuffix(key, "_id") || key == "appid" {
			f.ContainsIDParam = true
			break
		}
	}

	f.StoreImpersonation = impersonatesStore(f.Host)
	return f
}

// Lookup exposes app features by their serialized names.
func (f *App) Lookup(name string) (Value, bool) {
	switch name {
	case "platform":
		return str(f.Platform), true
	case "host":
		return str(f.Host), true
	case "is_official_store":
		return boolean(f.IsOfficialStore), true
	case "direct_apk":
		return boolean(f.DirectAPK), true
	case "direct_ipa":
		return boolean(f.DirectIPA), true
	case "scam_hits":
		return list(f.ScamHits), true
	case "shortened":
		return boolean(f.Shortened), true
	case "contains_id_param":
		return boolean(f.ContainsIDParam), true
	case "length":
		return num(f.Length), true
	case "https":
		return boolean(f.HTTPS), true
	case "store_impersonation":
		return boolean(f.StoreImpersonation), true
	}
	return Value{}, false
}

// impersonatesStore flags hosts that are not a genuine store host but name
// a store brand in any label, or whose registrable label is within two
// edits of one.
func impersonatesStore(host string) bool {
	if host == "" || isAnyOfficialStore(host) {
		return false
	}

	registered, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registered = host
	}
	if registered == "google.com" || registered == "apple.com" {
		return false
	}

	label := registered
	if i := strings.Index(label, "."); i > 0 {
		label = label[:i]
	}

	for _, brand := range storeBrands {
		if strings.Contains(host, brand) {
			return true
		}
		if d := levenshtein.ComputeDistance(label, brand); d > 0 && d <= 2 {
			return true
		}
	}
	return false
}
