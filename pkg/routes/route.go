package routes

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/linkguard/pkg/openapi"
)

// Route binds an HTTP method and pattern to a handler. Routes with a nil
// OpenAPI operation are served but left out of generated documentation.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
	OpenAPI *openapi.Operation
}

func (r Route) pattern(prefix string) string {
	return r.Method + " " + prefix + r.Pattern
}

// docPath converts a mux path into an OpenAPI path by dropping the
// trailing wildcard marker, so "/blobs/{key...}" becomes "/blobs/{key}".
func docPath(path string) string {
	return strings.ReplaceAll(path, "...}", "}")
}
