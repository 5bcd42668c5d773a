package features

import (
	"slices"
	"strings"
)

var suspiciousTLDs = map[string]struct{}{
	"tk": {}, "ml": {}, "ga": {}, "cf": {}, "gq": {},
	"top": {}, "xyz": {}, "buzz": {},
}

var suspiciousWords = []string{
	"login", "signin", "verify", "win", "password", "update",
	"bank", "account", "secure", "confirm", "banking", "webscr",
	"paypal", "free", "bonus", "gift", "prize", "lottery", "credit",
}

// Brands are compared against the registrable-domain label.
var Brands = []string{"paypal", "google", "microsoft", "apple", "amazon", "facebook"}

var scamWords = []string{
	"apk", "crack", "free-download", "hack", "mirror", "mod", "patch", "premium",
}

var shorteners = []string{
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly",
	"is.gd", "buff.ly", "cutt.ly", "rb.gy",
}

var officialStores = map[string][]string{
	"android": {"play.google.com"},
	"ios":     {"apps.apple.com", "itunes.apple.com"},
}

var storeBrands = []string{"google", "apple"}

var (
	dangerousExts = set(".exe", ".scr", ".js", ".vbs", ".jar", ".bat", ".com", ".msi", ".ps1", ".apk")
	docExts       = set(".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt", ".rtf", ".ppt", ".pptx")
	imageExts     = set(".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg")
	archiveExts   = set(".zip", ".rar", ".7z", ".tar", ".gz")
)

var baitWords = []string{
	"account", "bank", "confirm", "invoice", "payment",
	"secure", "statement", "unlock", "urgent", "verify",
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, i := range items {
		m[i] = struct{}{}
	}
	return m
}

func has(m map[string]struct{}, key string) bool {
	_, ok := m[key]
	return ok
}

// hits returns the words found in s, in list order.
func hits(s string, words []string) []string {
	found := make([]string, 0)
	for _, w := range words {
		if strings.Contains(s, w) {
			found = append(found, w)
		}
	}
	return found
}

// isOfficialStore matches host against the store hosts of platform. Only
// the store host itself or one of its subdomains qualifies.
func isOfficialStore(host, platform string) bool {
	return slices.ContainsFunc(officialStores[platform], storeHost(host))
}

func isAnyOfficialStore(host string) bool {
	for _, hosts := range officialStores {
		if slices.ContainsFunc(hosts, storeHost(host)) {
			return true
		}
	}
	return false
}

func storeHost(host string) func(string) bool {
	return func(store string) bool {
		return host == store || strings.HasSuffix(host, "."+store)
	}
}

// recognizedExt reports whether ext belongs to any known extension class.
func recognizedExt(ext string) bool {
	return has(dangerousExts, ext) || has(docExts, ext) || has(imageExts, ext) || has(archiveExts, ext)
}
