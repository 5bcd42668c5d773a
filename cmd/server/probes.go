package main

import (
	"net/http"

	"github.com/JaimeStill/linkguard/pkg/handlers"
	"github.com/JaimeStill/linkguard/pkg/lifecycle"
)

type readiness struct {
	Status  string          `json:"status"`
	Version string          `json:"version,omitempty"`
	Checks  map[string]bool `json:"checks"`
}

func healthz(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz answers 503 until startup completes and every registered
// check passes.
func readyz(lc *lifecycle.Coordinator, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := readiness{
			Status:  "ready",
			Version: version,
			Checks:  lc.Checks(),
		}

		code := http.StatusOK
		if !lc.Ready() {
			body.Status, code = "not ready", http.StatusServiceUnavailable
		}
		handlers.RespondJSON(w, code, body)
	}
}
