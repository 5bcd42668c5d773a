package scoring

import (
	"github.com/JaimeStill/linkguard/internal/features"
)

func evaluateContent(f *features.Content, sector string) []Reason {
	var reasons []Reason
	add := func(text string, points int) {
		reasons = append(reasons, Reason{Text: text, Points: points})
	}

	if f.IsDangerous {
		add("Dangerous file type "+f.Ext, 40)
	}
	if f.SuspiciousPatterns {
		add("Suspicious pattern detected (login/password/numeric)", 25)
	}
	if f.DigitsInFilenameRatio > 0.4 {
		add("High digit ratio in filename", 20)
	}
	if f.SpecialCharsInFilename >= 3 {
		add("Multiple special characters in filename", 15)
	}

	if f.HasBaitWords {
		add("Bait words in URL", 15)
	}
	if f.VeryLongQuery {
		add("Very long querystring", 15)
	}
	if f.ContainsDoubleExt {
		add("Filename has double extensions", 10)
	}

	if !f.RecognizedExt {
		add("Unknown or missing extension", 5)
	}

	if (f.IsKnownDoc || f.IsImage) && len(reasons) == 0 {
		add("Known doc/image type", -10)
	}

	return append(reasons, sectorBoost(sector)...)
}
