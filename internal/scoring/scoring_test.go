package scoring_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/linkguard/internal/features"
	"github.com/JaimeStill/linkguard/internal/ml"
	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/internal/whitelist"
	"github.com/JaimeStill/linkguard/pkg/lifecycle"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClassifier struct {
	p     float64
	err   error
	panic bool
	calls atomic.Int32
}

func (c *fakeClassifier) PredictProba(_ context.Context, _ []float64) (float64, error) {
	c.calls.Add(1)
	if c.panic {
		panic("boom")
	}
	return c.p, c.err
}

type recordingObserver struct {
	mu         sync.Mutex
	records    int
	mlFailures int
	probes     int
}

func (o *recordingObserver) ObserveRecord(*scoring.Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records++
}

func (o *recordingObserver) ObserveMLFailure(features.Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mlFailures++
}

func (o *recordingObserver) ObserveProbes(features.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.probes++
}

type staticProber struct{ report features.Report }

func (p staticProber) Probe(context.Context, *url.URL) features.Report { return p.report }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, model *ml.Handle, opts ...scoring.Option) *scoring.Engine {
	t.Helper()
	snap := &scoring.Snapshot{
		Whitelist: whitelist.New("bank.com", "example.org"),
		Model:     model,
		TLDs:      features.DefaultTLDs(),
		LoadedAt:  fixedNow,
	}
	base := []scoring.Option{
		scoring.WithSnapshot(snap),
		scoring.WithClock(func() time.Time { return fixedNow }),
	}
	return scoring.New(&scoring.Config{}, discardLogger(), append(base, opts...)...)
}

func texts(reasons []scoring.Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = r.Text
	}
	return out
}

func TestAggregate_Boundaries(t *testing.T) {
	tests := []struct {
		sum    []int
		score  int
		status scoring.Status
	}{
		{[]int{39}, 39, scoring.Safe},
		{[]int{20, 20}, 40, scoring.MediumRisk},
		{[]int{69}, 69, scoring.MediumRisk},
		{[]int{40, 30}, 70, scoring.HighRisk},
		{[]int{-30}, 0, scoring.Safe},
		{[]int{90, 40}, 100, scoring.HighRisk},
		{nil, 0, scoring.Safe},
	}

	for _, tt := range tests {
		var reasons []scoring.Reason
		for _, p := range tt.sum {
			reasons = append(reasons, scoring.Reason{Text: "r", Points: p})
		}
		score, status := scoring.Aggregate(reasons)
		assert.Equal(t, tt.score, score, "%v", tt.sum)
		assert.Equal(t, tt.status, status, "%v", tt.sum)
	}
}

func TestAggregate_Monotonic(t *testing.T) {
	reasons := []scoring.Reason{{Text: "a", Points: 15}}
	prev, _ := scoring.Aggregate(reasons)

	for _, p := range []int{15, 20, 30, 40} {
		reasons = append(reasons, scoring.Reason{Text: "b", Points: p})
		score, _ := scoring.Aggregate(reasons)
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}

	score, _ := scoring.Aggregate(nil)
	assert.Zero(t, score)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, scoring.Safe, scoring.StatusFor(0))
	assert.Equal(t, scoring.Safe, scoring.StatusFor(39))
	assert.Equal(t, scoring.MediumRisk, scoring.StatusFor(40))
	assert.Equal(t, scoring.MediumRisk, scoring.StatusFor(69))
	assert.Equal(t, scoring.HighRisk, scoring.StatusFor(70))
	assert.Equal(t, scoring.HighRisk, scoring.StatusFor(100))
}

func TestScoreURL_LegitOverride(t *testing.T) {
	clf := &fakeClassifier{p: 0.99}
	e := newEngine(t, &ml.Handle{Classifier: clf, Features: []string{"length"}})

	for _, raw := range []string{"https://www.bank.com", "https://bank.com/login", "bank.com"} {
		rec := e.ScoreURL(context.Background(), raw, "banking")

		assert.Equal(t, 0, rec.Score, raw)
		assert.Equal(t, scoring.Safe, rec.Status, raw)
		require.Len(t, rec.Reasons, 1, raw)
		assert.Equal(t, "Domain marked as legit", rec.Reasons[0].Text)
		assert.Equal(t, -30, rec.Reasons[0].Points)
	}
	assert.Zero(t, clf.calls.Load())
}

func TestScoreURL_SiblingSubdomainNotOverridden(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreURL(context.Background(), "http://evil.bank.com/login", "")

	assert.NotContains(t, texts(rec.Reasons), "Domain marked as legit")
	assert.Contains(t, texts(rec.Reasons), "Suspicious words in URL: login, bank")
}

func TestScoreURL_IPHost(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreURL(context.Background(), "http://192.168.1.1/login", "")

	assert.Equal(t, []scoring.Reason{
		{Text: "Host is an IP address", Points: 30},
		{Text: "Suspicious words in URL: login", Points: 10},
		{Text: "Host mostly digits", Points: 25},
	}, rec.Reasons)
	assert.Equal(t, 65, rec.Score)
	assert.Equal(t, scoring.MediumRisk, rec.Status)
	assert.Equal(t, features.KindURL, rec.Type)
	assert.Equal(t, "general", rec.Sector)
}

func TestScoreURL_Malformed(t *testing.T) {
	e := newEngine(t, nil)

	for _, raw := range []string{"not a url with spaces", "", "   ", "localhost", "http://"} {
		rec := e.ScoreURL(context.Background(), raw, "")

		assert.Equal(t, 99, rec.Score, raw)
		assert.Equal(t, scoring.HighRisk, rec.Status, raw)
		assert.Equal(t, []scoring.Reason{{Text: "Input is not a valid URL", Points: 50}}, rec.Reasons, raw)
		assert.Equal(t, features.Empty{Type: features.KindURL}, rec.Features, raw)
	}

	out, err := json.Marshal(e.ScoreURL(context.Background(), "localhost", ""))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"features":{}`)
}

func TestScoreURL_CleanHasEmptyReasons(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreURL(context.Background(), "http://example.com", "")
	require.NotNil(t, rec.Reasons)
	assert.Empty(t, rec.Reasons)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"reasons":[]`)
}

func TestScoreURL_BrandAndTLD(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreURL(context.Background(), "https://paypa1.tk", "")

	assert.Equal(t, []scoring.Reason{
		{Text: "Domain similar to brand 'paypal'", Points: 35},
		{Text: "Suspicious TLD .tk", Points: 20},
	}, rec.Reasons)
	assert.Equal(t, 55, rec.Score)
}

func TestScoreURL_HomoglyphBrand(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreURL(context.Background(), "https://paypaӏ.com", "")

	assert.Equal(t, []scoring.Reason{
		{Text: "Suspicious Punycode host with homoglyphs", Points: 40},
		{Text: "Domain similar to brand 'paypal'", Points: 35},
	}, rec.Reasons)
	assert.Equal(t, 75, rec.Score)
	assert.Equal(t, scoring.HighRisk, rec.Status)
}

func TestScoreURL_SafeBonus(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreURL(context.Background(), "https://docs.golang-example.com", "")

	assert.Equal(t, []scoring.Reason{{Text: "HTTPS present (safe signal)", Points: -5}}, rec.Reasons)
	assert.Equal(t, 0, rec.Score)
}

func TestScoreURL_SectorBoost(t *testing.T) {
	e := newEngine(t, nil)

	banking := e.ScoreURL(context.Background(), "http://192.168.1.1/login", "Banking")
	social := e.ScoreURL(context.Background(), "http://192.168.1.1/login", "email")

	assert.Equal(t, "Banking/finance related → higher risk", banking.Reasons[len(banking.Reasons)-1].Text)
	assert.Equal(t, 75, banking.Score)
	assert.Equal(t, "Social/messaging related → phishing prone", social.Reasons[len(social.Reasons)-1].Text)
	assert.Equal(t, 70, social.Score)
}

func TestScoreURL_MeasuredProbes(t *testing.T) {
	obs := &recordingObserver{}
	prober := staticProber{report: features.Report{
		Reachable:     features.Signal[bool]{Value: false, State: features.Measured},
		Redirects:     features.Signal[int]{Value: 4, State: features.Measured},
		TLSValid:      features.Signal[bool]{Value: false, State: features.Measured},
		DomainAgeDays: features.Signal[int]{Value: -1, State: features.Skipped},
	}}
	e := newEngine(t, nil, scoring.WithProber(prober), scoring.WithObserver(obs))

	rec := e.ScoreURL(context.Background(), "https://unknown-site.net", "")

	assert.Equal(t, []string{
		"HTTPS but invalid/expired SSL",
		"Excessive redirects (4)",
		"URL not reachable",
	}, texts(rec.Reasons))
	assert.Equal(t, 65, rec.Score)
	assert.Equal(t, 1, obs.probes)
	assert.Equal(t, 1, obs.records)
}

func TestScoreURL_DegradedProbesAddNothing(t *testing.T) {
	prober := staticProber{report: features.Report{
		Reachable:     features.Signal[bool]{State: features.Degraded, Err: "dial timeout"},
		Redirects:     features.Signal[int]{State: features.Degraded, Err: "dial timeout"},
		TLSValid:      features.Signal[bool]{State: features.Degraded, Err: "dial timeout"},
		DomainAgeDays: features.Signal[int]{Value: -1, State: features.Skipped},
	}}
	e := newEngine(t, nil, scoring.WithProber(prober))

	rec := e.ScoreURL(context.Background(), "https://unknown-site.net", "")

	assert.Equal(t, []string{"HTTPS present (safe signal)"}, texts(rec.Reasons))
}

func TestScoreURL_Idempotent(t *testing.T) {
	e := newEngine(t, &ml.Handle{Classifier: &fakeClassifier{p: 0.3}, Features: []string{"length", "tld"}})

	for _, raw := range []string{"http://192.168.1.1/login", "https://paypa1.tk", "https://www.bank.com"} {
		a := e.ScoreURL(context.Background(), raw, "banking")
		b := e.ScoreURL(context.Background(), raw, "banking")

		assert.Equal(t, a.Score, b.Score, raw)
		assert.Equal(t, a.Status, b.Status, raw)
		assert.Equal(t, a.Reasons, b.Reasons, raw)
	}
}

func TestScore_Bounds(t *testing.T) {
	e := newEngine(t, &ml.Handle{Classifier: &fakeClassifier{p: 1}, Features: []string{"length"}})

	inputs := []scoring.Artifact{
		{Kind: features.KindURL, Raw: "http://a-b-c-d.e.f.g.paypa1.tk:8080/login@verify" + strings.Repeat("x", 130), Sector: "banking"},
		{Kind: features.KindURL, Raw: "https://www.bank.com"},
		{Kind: features.KindApp, Raw: "http://bit.ly/x.apk", Platform: "ios", Sector: "payment"},
		{Kind: features.KindContent, Raw: "http://evil.com/login-password-1234567.pdf.exe?q=" + strings.Repeat("u", 400)},
		{Kind: features.KindContent, Raw: "https://example.com/readme.pdf"},
	}

	for _, a := range inputs {
		rec := e.Score(context.Background(), a)
		assert.GreaterOrEqual(t, rec.Score, 0, a.Raw)
		assert.LessOrEqual(t, rec.Score, 100, a.Raw)
		assert.Equal(t, scoring.StatusFor(rec.Score), rec.Status, a.Raw)
	}
}

func TestScoreContent_Dangerous(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreContent(context.Background(), "http://evil.com/invoice123.exe", "")

	assert.Equal(t, []scoring.Reason{
		{Text: "Dangerous file type .exe", Points: 40},
		{Text: "Suspicious pattern detected (login/password/numeric)", Points: 25},
		{Text: "Bait words in URL", Points: 15},
	}, rec.Reasons)
	assert.Equal(t, 80, rec.Score)
	assert.Equal(t, scoring.HighRisk, rec.Status)
	assert.Equal(t, features.KindContent, rec.Type)
}

func TestScoreContent_KnownDocument(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreContent(context.Background(), "https://example.com/readme.pdf", "")

	assert.Equal(t, []scoring.Reason{{Text: "Known doc/image type", Points: -10}}, rec.Reasons)
	assert.Equal(t, 0, rec.Score)
}

func TestScoreContent_EmptyInput(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreContent(context.Background(), " ", "")

	assert.Equal(t, 99, rec.Score)
	assert.Equal(t, features.KindContent, rec.Type)
}

func TestScoreApp(t *testing.T) {
	e := newEngine(t, nil)

	official := e.ScoreApp(context.Background(), "https://play.google.com/store/apps/details?id=com.example", "android", "")
	assert.Equal(t, []scoring.Reason{{Text: "Official store link (safe)", Points: -15}}, official.Reasons)
	assert.Equal(t, scoring.Safe, official.Status)
	assert.Equal(t, "android", official.Platform)

	sideload := e.ScoreApp(context.Background(), "http://dl.example.com/app.apk", "ios", "")
	assert.Equal(t, []string{
		"Direct APK download (bypass store)",
		"Not official app store",
		"Scam keywords: apk",
		"Non-HTTPS URL",
		"Android APK on iOS platform",
	}, texts(sideload.Reasons))
	assert.Equal(t, 100, sideload.Score)
	assert.Equal(t, "ios", sideload.Platform)

	fake := e.ScoreApp(context.Background(), "https://play.google-apps.com/details?id=com.bank", "android", "")
	assert.Contains(t, texts(fake.Reasons), "Impersonates official app store")
	assert.Contains(t, texts(fake.Reasons), "Contains suspicious ID parameter")

	spoofed := e.ScoreApp(context.Background(), "https://play.google.com.evil.tk/store/apps/details?id=com.bank", "android", "")
	assert.Equal(t, []string{
		"Not official app store",
		"Impersonates official app store",
		"Contains suspicious ID parameter",
	}, texts(spoofed.Reasons))
	assert.Equal(t, 65, spoofed.Score)
	assert.Equal(t, scoring.MediumRisk, spoofed.Status)

	empty := e.ScoreApp(context.Background(), "", "android", "")
	assert.Equal(t, 99, empty.Score)
}

func TestScoreInput_RoutesByKind(t *testing.T) {
	e := newEngine(t, nil)

	assert.Equal(t, features.KindContent, e.ScoreInput(context.Background(), "http://evil.com/invoice123.exe", "").Type)
	assert.Equal(t, features.KindApp, e.ScoreInput(context.Background(), "http://dl.example.com/app.apk", "").Type)
	assert.Equal(t, features.KindURL, e.ScoreInput(context.Background(), "http://example.net", "").Type)

	bad := e.ScoreInput(context.Background(), "not a url with spaces", "")
	assert.Equal(t, 99, bad.Score)
}

func TestApplyML_AbsentClassifier(t *testing.T) {
	e := newEngine(t, nil)
	reasons := []scoring.Reason{{Text: "Host is an IP address", Points: 30}}
	set := features.ExtractContent("http://evil.com/a.exe")

	out := e.ApplyML(context.Background(), set, reasons)

	assert.Equal(t, reasons, out)
	assert.Len(t, out, 1)
}

func TestApplyML_Probability(t *testing.T) {
	e := newEngine(t, &ml.Handle{Classifier: &fakeClassifier{p: 0.83}, Features: []string{"ext"}})

	out := e.ApplyML(context.Background(), features.ExtractContent("http://evil.com/a.exe"), nil)

	assert.Equal(t, []scoring.Reason{{Text: "ML probability: 0.83", Points: 42}}, out)
}

func TestApplyML_Failures(t *testing.T) {
	tests := []struct {
		name string
		clf  *fakeClassifier
	}{
		{"error", &fakeClassifier{err: errors.New("backend down")}},
		{"panic", &fakeClassifier{panic: true}},
		{"nan", &fakeClassifier{p: math.NaN()}},
		{"out of range", &fakeClassifier{p: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			e := newEngine(t, &ml.Handle{Classifier: tt.clf, Features: []string{"ext"}}, scoring.WithObserver(obs))
			in := []scoring.Reason{{Text: "Dangerous file type .exe", Points: 40}}

			out := e.ApplyML(context.Background(), features.ExtractContent("http://evil.com/a.exe"), in)

			assert.Equal(t, []scoring.Reason{
				{Text: "Dangerous file type .exe", Points: 40},
				{Text: "ML scoring failed", Points: 0},
			}, out)
			assert.Len(t, in, 1)
			assert.Equal(t, 1, obs.mlFailures)
		})
	}
}

func TestApplyML_DimensionMismatchFromBooster(t *testing.T) {
	booster, err := ml.ParseBooster(strings.NewReader(`{"learner": {
		"gradient_booster": {"model": {"trees": [
			{"left_children": [-1], "right_children": [-1], "split_indices": [0], "split_conditions": [0.2]}
		]}},
		"learner_model_param": {"base_score": "5E-1", "num_feature": "3"}
	}}`))
	require.NoError(t, err)
	e := newEngine(t, &ml.Handle{Classifier: booster, Features: []string{"ext"}})

	out := e.ApplyML(context.Background(), features.ExtractContent("http://evil.com/a.exe"), nil)

	assert.Equal(t, []scoring.Reason{{Text: "ML scoring failed", Points: 0}}, out)
}

func TestReload_SwapsSnapshot(t *testing.T) {
	e := newEngine(t, nil)
	before := e.Snapshot()

	after, err := e.Reload(scoring.Artifacts{Whitelist: strings.NewReader("# trusted\nunknown-site.net\n")})
	require.NoError(t, err)

	assert.NotSame(t, before, after)
	assert.Same(t, after, e.Snapshot())
	assert.True(t, after.Whitelist.IsLegit("unknown-site.net"))
	assert.False(t, before.Whitelist.IsLegit("unknown-site.net"))
	assert.Same(t, before.TLDs, after.TLDs)

	rec := e.ScoreURL(context.Background(), "https://unknown-site.net", "")
	assert.Equal(t, "Domain marked as legit", rec.Reasons[0].Text)
}

func TestReload_InvalidModelKeepsSnapshot(t *testing.T) {
	e := newEngine(t, nil)
	before := e.Snapshot()

	_, err := e.Reload(scoring.Artifacts{Model: strings.NewReader("{}")})

	assert.Error(t, err)
	assert.Same(t, before, e.Snapshot())
}

func TestReload_ConcurrentScoring(t *testing.T) {
	e := newEngine(t, nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			for range 50 {
				rec := e.ScoreURL(context.Background(), "http://192.168.1.1/login", "")
				assert.Equal(t, 65, rec.Score)
			}
		})
		if i%2 == 0 {
			wg.Go(func() {
				_, err := e.Reload(scoring.Artifacts{Whitelist: strings.NewReader("bank.com\n")})
				assert.NoError(t, err)
			})
		}
	}
	wg.Wait()
}

func TestStart_RefreshesTLDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "# Version 2026030100\nCOM\nZZZZ\n")
	}))
	defer srv.Close()

	cfg := &scoring.Config{TLDListURL: srv.URL, TLDRefresh: true}
	e := scoring.New(cfg, discardLogger(),
		scoring.WithSnapshot(&scoring.Snapshot{Whitelist: whitelist.Empty(), TLDs: features.DefaultTLDs()}),
		scoring.WithHTTPClient(srv.Client()),
	)

	lc := lifecycle.New()
	require.NoError(t, e.Start(lc))
	lc.WaitForStartup()

	assert.Equal(t, 2, e.Snapshot().TLDs.Len())
	assert.True(t, e.Snapshot().TLDs.Valid("zzzz"))
}

func TestStart_FailedRefreshKeepsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fallback := features.DefaultTLDs()
	cfg := &scoring.Config{TLDListURL: srv.URL, TLDRefresh: true}
	e := scoring.New(cfg, discardLogger(),
		scoring.WithSnapshot(&scoring.Snapshot{Whitelist: whitelist.Empty(), TLDs: fallback}),
		scoring.WithHTTPClient(srv.Client()),
	)

	lc := lifecycle.New()
	require.NoError(t, e.Start(lc))
	lc.WaitForStartup()

	assert.Same(t, fallback, e.Snapshot().TLDs)
}

func TestNew_MissingFilesDegrade(t *testing.T) {
	dir := t.TempDir()
	cfg := &scoring.Config{
		WhitelistPath:      dir + "/missing.txt",
		ModelPath:          dir + "/missing.json",
		FeatureColumnsPath: dir + "/columns.json",
	}

	e := scoring.New(cfg, discardLogger())
	snap := e.Snapshot()

	assert.Zero(t, snap.Whitelist.Len())
	assert.Nil(t, snap.Model)
	assert.Positive(t, snap.TLDs.Len())

	rec := e.ScoreURL(context.Background(), "http://192.168.1.1/login", "")
	assert.Equal(t, 65, rec.Score)
}

func TestRecord_Timestamp(t *testing.T) {
	e := newEngine(t, nil)

	rec := e.ScoreURL(context.Background(), "http://192.168.1.1/login", "")

	assert.Equal(t, "2026-03-01T12:00:00Z", rec.Timestamp.Format(time.RFC3339))
}
