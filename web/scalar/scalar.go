// Package scalar serves the Scalar API reference UI for the OpenAPI document.
package scalar

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/JaimeStill/linkguard/pkg/module"
)

//go:embed index.html
var index string

var page = template.Must(template.New("index").Parse(index))

type pageData struct {
	Title   string
	SpecURL string
}

// NewModule mounts the reference UI at prefix. The page is rendered
// once and loads the OpenAPI document from specURL in the browser.
func NewModule(prefix, specURL, title string) *module.Module {
	if title == "" {
		title = "API"
	}

	var buf bytes.Buffer
	page.Execute(&buf, pageData{Title: title, SpecURL: specURL})
	html := buf.Bytes()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(html)
	})

	return module.New(prefix, mux)
}
