package features

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Scripts whose letters are substituted for Latin ones in IDN spoofing.
var lookalikeScripts = []*unicode.RangeTable{
	unicode.Cyrillic, unicode.Greek, unicode.Armenian, unicode.Cherokee,
}

// Latin skeletons for letters that render like ASCII. Keys are lowercase,
// after compatibility decomposition.
var homoglyphs = map[rune]rune{
	// Cyrillic
	'а': 'a', 'с': 'c', 'ԁ': 'd', 'е': 'e', 'һ': 'h', 'і': 'i', 'ј': 'j',
	'ӏ': 'l', 'о': 'o', 'р': 'p', 'ԛ': 'q', 'ѕ': 's', 'ѵ': 'v', 'ԝ': 'w',
	'х': 'x', 'у': 'y',
	// Greek
	'α': 'a', 'ϲ': 'c', 'ι': 'i', 'ϳ': 'j', 'ν': 'v', 'ο': 'o', 'ρ': 'p',
	'υ': 'u', 'γ': 'y',
	// Armenian
	'ց': 'g', 'հ': 'h', 'ո': 'n', 'օ': 'o', 'ս': 'u', 'զ': 'q',
	// Latin letters that pass for ASCII
	'ɑ': 'a', 'ɡ': 'g', 'ı': 'i', 'ɩ': 'l', 'ȷ': 'j', 'ʘ': 'o', 'ꞵ': 'b',
}

var nonspacingMarks = runes.In(unicode.Mn)

// skeleton folds s to the ASCII string it imitates. Compatibility forms
// are decomposed, combining marks dropped, and homoglyphs replaced.
func skeleton(s string) string {
	// chains carry state, so one is built per call
	fold := transform.Chain(norm.NFKD, runes.Remove(nonspacingMarks), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if l, ok := homoglyphs[r]; ok {
			return l
		}
		return r
	}, folded)
}

// containsHomoglyphs reports whether s carries a known look-alike letter,
// or mixes Latin letters with letters from a look-alike script.
func containsHomoglyphs(s string) bool {
	var latin, foreign bool
	for _, r := range norm.NFKD.String(s) {
		r = unicode.ToLower(r)
		if _, ok := homoglyphs[r]; ok {
			return true
		}
		switch {
		case unicode.Is(unicode.Latin, r):
			latin = true
		case unicode.In(r, lookalikeScripts...):
			foreign = true
		}
	}
	return latin && foreign
}
