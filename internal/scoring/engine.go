// Package scoring turns a candidate URL, app link, or content link into a
// DetectionRecord: features are extracted, heuristic rules produce weighted
// reasons, an optional classifier adds a probability reason, and the total
// is clamped to [0, 100] and labelled.
//
// Scoring never returns an error. Invalid input yields a fixed high-risk
// record and every dependency failure degrades to a neutral signal.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/JaimeStill/linkguard/internal/features"
	"github.com/JaimeStill/linkguard/internal/ml"
	"github.com/JaimeStill/linkguard/internal/whitelist"
	"github.com/JaimeStill/linkguard/pkg/lifecycle"
)

const tldRefreshTimeout = 10 * time.Second

// Snapshot is the read-only state shared by concurrent scoring calls.
// A reload replaces the whole snapshot; a published snapshot is never mutated.
type Snapshot struct {
	Whitelist *whitelist.List
	Model     *ml.Handle
	TLDs      *features.TLDSet
	LoadedAt  time.Time
}

// Observer receives scoring outcomes for metrics.
type Observer interface {
	ObserveRecord(r *Record)
	ObserveMLFailure(kind features.Kind)
	ObserveProbes(report features.Report)
}

type nopObserver struct{}

func (nopObserver) ObserveRecord(*Record)          {}
func (nopObserver) ObserveMLFailure(features.Kind) {}
func (nopObserver) ObserveProbes(features.Report)  {}

// Artifacts supplies replacement scoring artifacts. A nil reader keeps the
// current value for that artifact.
type Artifacts struct {
	Whitelist io.Reader
	Model     io.Reader
	Columns   io.Reader
}

// Engine is the scoring façade.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	cfg      *Config
	prober   features.Prober
	observer Observer
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithProber overrides the prober derived from configuration. A nil prober
// disables network probes.
func WithProber(p features.Prober) Option {
	return func(e *Engine) { e.prober = p }
}

// WithObserver registers an Observer for scoring outcomes.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithHTTPClient sets the client used for the TLD list refresh.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSnapshot replaces the snapshot loaded from configured paths.
func WithSnapshot(s *Snapshot) Option {
	return func(e *Engine) { e.snapshot.Store(s) }
}

// New creates an Engine. Whitelist and model files are read from the
// configured paths; missing or unreadable files are logged and scoring
// continues with an empty whitelist and rules only.
func New(cfg *Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		observer: nopObserver{},
		client:   &http.Client{Timeout: tldRefreshTimeout},
		logger:   logger.With("system", "scoring"),
		now:      time.Now,
	}

	if cfg.Probes.Enabled {
		e.prober = features.NewHTTPProber(cfg.Probes.TimeoutDuration(), cfg.Probes.UserAgent, nil)
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.snapshot.Load() == nil {
		e.snapshot.Store(e.loadFiles())
	}

	return e
}

// Snapshot returns the currently published snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Start registers a startup hook that refreshes the valid-TLD set from the
// configured list URL. A failed refresh keeps the current set.
func (e *Engine) Start(lc *lifecycle.Coordinator) error {
	snap := e.snapshot.Load()
	e.logger.Info(
		"starting scoring engine",
		"whitelist", snap.Whitelist.Len(),
		"model", snap.Model != nil,
		"probes", e.prober != nil,
	)

	if !e.cfg.TLDRefresh {
		return nil
	}

	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), tldRefreshTimeout)
		defer cancel()

		if err := e.RefreshTLDs(ctx); err != nil {
			e.logger.Warn("tld refresh failed, keeping fallback list", "error", err)
		}
	})

	return nil
}

// RefreshTLDs downloads the TLD list and publishes a snapshot using it.
func (e *Engine) RefreshTLDs(ctx context.Context) error {
	tlds, err := features.FetchTLDs(ctx, e.client, e.cfg.TLDListURL)
	if err != nil {
		return err
	}

	e.swap(func(next *Snapshot) { next.TLDs = tlds })
	e.logger.Info("tld list refreshed", "count", tlds.Len())
	return nil
}

// Reload parses the supplied artifacts and atomically publishes a new
// snapshot. On error the current snapshot stays in place.
func (e *Engine) Reload(a Artifacts) (*Snapshot, error) {
	var (
		list  *whitelist.List
		model *ml.Handle
		err   error
	)

	if a.Whitelist != nil {
		if list, err = whitelist.Parse(a.Whitelist); err != nil {
			return nil, err
		}
	}
	if a.Model != nil {
		if model, err = ml.Read(a.Model, a.Columns); err != nil {
			return nil, err
		}
	}

	next := e.swap(func(next *Snapshot) {
		if list != nil {
			next.Whitelist = list
		}
		if model != nil {
			next.Model = model
		}
	})

	e.logger.Info(
		"scoring snapshot reloaded",
		"whitelist", next.Whitelist.Len(),
		"model", next.Model != nil,
	)
	return next, nil
}

// swap publishes a copy of the current snapshot after applying edit.
func (e *Engine) swap(edit func(next *Snapshot)) *Snapshot {
	for {
		cur := e.snapshot.Load()
		next := *cur
		edit(&next)
		next.LoadedAt = e.now().UTC()
		if e.snapshot.CompareAndSwap(cur, &next) {
			return &next
		}
	}
}

func (e *Engine) loadFiles() *Snapshot {
	snap := &Snapshot{
		Whitelist: whitelist.Empty(),
		TLDs:      features.DefaultTLDs(),
		LoadedAt:  e.now().UTC(),
	}

	if list, err := whitelist.Load(e.cfg.WhitelistPath); err != nil {
		e.logger.Warn("whitelist unavailable, using empty set", "path", e.cfg.WhitelistPath, "error", err)
	} else {
		snap.Whitelist = list
	}

	switch model, err := ml.Load(e.cfg.ModelPath, e.cfg.FeatureColumnsPath); {
	case err == nil:
		snap.Model = model
	case errors.Is(err, os.ErrNotExist):
		e.logger.Info("no model found, scoring with rules only", "path", e.cfg.ModelPath)
	default:
		e.logger.Warn("model unavailable, scoring with rules only", "path", e.cfg.ModelPath, "error", err)
	}

	return snap
}

// ScoreInput applies the URL validity gate and scores raw as the artifact
// kind its path implies.
func (e *Engine) ScoreInput(ctx context.Context, raw, sector string) *Record {
	raw = strings.TrimSpace(raw)
	if !ValidURL(raw) {
		return e.Score(ctx, Artifact{Kind: features.KindURL, Raw: raw, Sector: sector})
	}
	return e.Score(ctx, Artifact{Kind: features.Classify(raw), Raw: raw, Sector: sector})
}

// ScoreURL scores raw as a web URL.
func (e *Engine) ScoreURL(ctx context.Context, raw, sector string) *Record {
	return e.Score(ctx, Artifact{Kind: features.KindURL, Raw: raw, Sector: sector})
}

// ScoreApp scores raw as an app distribution link on platform.
func (e *Engine) ScoreApp(ctx context.Context, raw, platform, sector string) *Record {
	return e.Score(ctx, Artifact{Kind: features.KindApp, Raw: raw, Platform: platform, Sector: sector})
}

// ScoreContent scores raw as a downloadable content link.
func (e *Engine) ScoreContent(ctx context.Context, raw, sector string) *Record {
	return e.Score(ctx, Artifact{Kind: features.KindContent, Raw: raw, Sector: sector})
}

// Score dispatches a to the evaluator for its kind. An unknown kind is
// scored as a URL.
func (e *Engine) Score(ctx context.Context, a Artifact) (rec *Record) {
	a.Raw = strings.TrimSpace(a.Raw)
	a.Sector = normalizeSector(a.Sector)
	if a.Kind == features.KindApp {
		a.Platform = features.NormalizePlatform(a.Platform)
	} else {
		a.Platform = ""
	}
	if a.Kind != features.KindApp && a.Kind != features.KindContent {
		a.Kind = features.KindURL
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("scoring panic", "type", a.Kind, "url", a.Raw, "panic", fmt.Sprint(r))
			rec = invalidRecord(a, e.now())
		}
		e.observer.ObserveRecord(rec)
	}()

	if isInvalid(a) {
		return invalidRecord(a, e.now())
	}

	snap := e.snapshot.Load()

	switch a.Kind {
	case features.KindApp:
		f := features.ExtractApp(a.Raw, a.Platform)
		reasons := e.withML(ctx, snap, f, evaluateApp(f, a.Sector))
		return newRecord(a, f, reasons, e.now())

	case features.KindContent:
		f := features.ExtractContent(a.Raw)
		reasons := e.withML(ctx, snap, f, evaluateContent(f, a.Sector))
		return newRecord(a, f, reasons, e.now())

	default:
		f := features.ExtractURL(ctx, a.Raw, features.URLEnv{
			Whitelist: snap.Whitelist,
			TLDs:      snap.TLDs,
			Prober:    e.prober,
		})
		e.observeProbes(a, f.Probes)

		reasons, legit := evaluateURL(f, a.Sector)
		if legit {
			rec := newRecord(a, f, reasons, e.now())
			rec.Score, rec.Status = 0, Safe
			return rec
		}
		reasons = e.withML(ctx, snap, f, reasons)
		return newRecord(a, f, reasons, e.now())
	}
}

// ApplyML appends the classifier reason for set using the current
// snapshot's model. Without a model, reasons are returned unchanged.
func (e *Engine) ApplyML(ctx context.Context, set features.Set, reasons []Reason) []Reason {
	return e.withML(ctx, e.snapshot.Load(), set, reasons)
}

func (e *Engine) withML(ctx context.Context, snap *Snapshot, set features.Set, reasons []Reason) []Reason {
	out, err := applyML(ctx, snap.Model, set, reasons)
	if err != nil {
		e.logger.Warn("ml scoring failed", "type", set.Kind(), "error", err)
		e.observer.ObserveMLFailure(set.Kind())
	}
	return out
}

func (e *Engine) observeProbes(a Artifact, r features.Report) {
	if r.Reachable.State == features.Skipped && r.Redirects.State == features.Skipped && r.TLSValid.State == features.Skipped {
		return
	}
	e.observer.ObserveProbes(r)

	for name, s := range map[string]features.SignalState{
		"reachable": r.Reachable.State,
		"redirects": r.Redirects.State,
		"tls_valid": r.TLSValid.State,
	} {
		if s == features.Degraded {
			e.logger.Warn("probe degraded", "signal", name, "url", a.Raw)
		}
	}
}
