package features

import (
	"net/url"
	"path"
	"strings"
)

// Classify routes a raw link to the artifact kind it should be scored as.
// Links ending in .apk or .ipa are apps; dangerous, document and archive
// downloads are content; everything else is a URL.
func Classify(raw string) Kind {
	p := strings.ToLower(strings.TrimSpace(raw))
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	ext := path.Ext(p)

	switch {
	case ext == ".apk" || ext == ".ipa":
		return KindApp
	case has(dangerousExts, ext), has(docExts, ext), has(archiveExts, ext):
		return KindContent
	default:
		return KindURL
	}
}
