package features

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
)

var (
	credentialPattern = regexp.MustCompile(`(?i)(password|passwd|login|signin|\d{3,})`)
	userinfoPattern   = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://[^/@\s]+:[^/@\s]*@`)
)

// Content holds the signals extracted from a downloadable content link.
type Content struct {
	Filename               string   `json:"filename"`
	Ext                    string   `json:"ext"`
	IsDangerous            bool     `json:"is_dangerous"`
	IsKnownDoc             bool     `json:"is_known_doc"`
	IsImage                bool     `json:"is_image"`
	RecognizedExt          bool     `json:"recognized_ext"`
	DigitsInFilenameRatio  float64  `json:"digits_in_filename_ratio"`
	SpecialCharsInFilename int      `json:"special_chars_in_filename"`
	ContainsDoubleExt      bool     `json:"contains_double_ext"`
	SuspiciousPatterns     bool     `json:"suspicious_patterns"`
	HasBaitWords           bool     `json:"has_bait_words"`
	BaitHits               []string `json:"bait_hits"`
	QueryLength            int      `json:"query_length"`
	VeryLongQuery          bool     `json:"very_long_query"`
}

func (*Content) Kind() Kind { return KindContent }

// ExtractContent computes content-link features for raw. Input without a
// scheme is treated as a path.
func ExtractContent(raw string) *Content {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)

	f := &Content{BaitHits: hits(lower, baitWords)}
	f.HasBaitWords = len(f.BaitHits) > 0

	p := lower
	if u, err := url.Parse(lower); err == nil {
		p = u.Path
		f.QueryLength = len(u.RawQuery)
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		f.QueryLength = len(p[i:])
		p = p[:i]
	}
	f.VeryLongQuery = f.QueryLength > 300

	name := path.Base(p)
	if name == "." || name == "/" {
		name = ""
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	f.Filename = name
	f.Ext = path.Ext(name)

	f.IsDangerous = has(dangerousExts, f.Ext)
	f.IsKnownDoc = has(docExts, f.Ext)
	f.IsImage = has(imageExts, f.Ext)
	f.RecognizedExt = recognizedExt(f.Ext)

	f.DigitsInFilenameRatio = digitRatio(name)
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' {
			f.SpecialCharsInFilename++
		}
	}

	if parts := strings.Split(name, "."); len(parts) >= 3 {
		f.ContainsDoubleExt = recognizedExt("." + parts[len(parts)-2])
	}

	f.SuspiciousPatterns = credentialPattern.MatchString(name) || userinfoPattern.MatchString(lower)
	return f
}

// Lookup exposes content features by their serialized names.
func (f *Content) Lookup(name string) (Value, bool) {
	switch name {
	case "filename":
		return str(f.Filename), true
	case "ext":
		return str(f.Ext), true
	case "is_dangerous":
		return boolean(f.IsDangerous), true
	case "is_known_doc":
		return boolean(f.IsKnownDoc), true
	case "is_image":
		return boolean(f.IsImage), true
	case "recognized_ext":
		return boolean(f.RecognizedExt), true
	case "digits_in_filename_ratio":
		return num(f.DigitsInFilenameRatio), true
	case "special_chars_in_filename":
		return num(f.SpecialCharsInFilename), true
	case "contains_double_ext":
		return boolean(f.ContainsDoubleExt), true
	case "suspicious_patterns":
		return boolean(f.SuspiciousPatterns), true
	case "has_bait_words":
		return boolean(f.HasBaitWords), true
	case "bait_hits":
		return list(f.BaitHits), true
	case "query_length":
		return num(f.QueryLength), true
	case "very_long_query":
		return boolean(f.VeryLongQuery), true
	}
	return Value{}, false
}
