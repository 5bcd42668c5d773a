package scoring

import (
	"strings"

	"github.com/JaimeStill/linkguard/internal/features"
)

func evaluateApp(f *features.App, sector string) []Reason {
	var reasons []Reason
	add := func(text string, points int) {
		reasons = append(reasons, Reason{Text: text, Points: points})
	}

	if f.DirectAPK {
		add("Direct APK download (bypass store)", 40)
	}
	if f.DirectIPA {
		add("Direct IPA download (bypass store)", 40)
	}

	if !f.IsOfficialStore {
		add("Not official app store", 25)
	}
	if f.StoreImpersonation {
		add("Impersonates official app store", 30)
	}
	if len(f.ScamHits) > 0 {
		add("Scam keywords: "+strings.Join(f.ScamHits, ", "), 20)
	}
	if f.Shortened {
		add("Shortened URL (bit.ly/tinyurl/t.co)", 15)
	}
	if f.ContainsIDParam && !f.IsOfficialStore {
		add("Contains suspicious ID parameter", 10)
	}

	switch {
	case f.Length > 100:
		add("Very long URL", 10)
	case f.Length < 15:
		add("Extremely short URL", 10)
	}

	if !f.HTTPS {
		add("Non-HTTPS URL", 15)
	}

	if f.Platform == "android" && f.DirectIPA {
		add("iOS IPA on Android platform", 20)
	}
	if f.Platform == "ios" && f.DirectAPK {
		add("Android APK on iOS platform", 20)
	}

	if f.IsOfficialStore && !f.StoreImpersonation && len(reasons) == 0 {
		add("Official store link (safe)", -15)
	}

	return append(reasons, sectorBoost(sector)...)
}
