package features

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SignalState records how a network-derived value was obtained.
type SignalState string

const (
	// Measured values came from a completed probe.
	Measured SignalState = "measured"
	// Degraded values are neutral defaults substituted after a probe failure.
	Degraded SignalState = "degraded"
	// Skipped values were never probed.
	Skipped SignalState = "skipped"
)

// Signal carries a probe value together with how it was obtained.
// Rules only act on measured signals.
type Signal[T any] struct {
	Value T           `json:"value"`
	State SignalState `json:"state"`
	Err   string      `json:"error,omitempty"`
}

// Ok reports whether the signal holds a measured value.
func (s Signal[T]) Ok() bool {
	return s.State == Measured
}

func measured[T any](v T) Signal[T] {
	return Signal[T]{Value: v, State: Measured}
}

func degraded[T any](v T, err error) Signal[T] {
	return Signal[T]{Value: v, State: Degraded, Err: err.Error()}
}

func skipped[T any](v T) Signal[T] {
	return Signal[T]{Value: v, State: Skipped}
}

// Report bundles the network-derived signals for one URL.
type Report struct {
	Reachable     Signal[bool] `json:"reachable"`
	Redirects     Signal[int]  `json:"redirects"`
	TLSValid      Signal[bool] `json:"tls_valid"`
	DomainAgeDays Signal[int]  `json:"domain_age_days"`
}

// SkippedReport is the report used when probing is disabled or not applicable.
func SkippedReport() Report {
	return Report{
		Reachable:     skipped(false),
		Redirects:     skipped(0),
		TLSValid:      skipped(false),
		DomainAgeDays: skipped(-1),
	}
}

// Prober performs the network probes for URL feature extraction.
// Implementations must fail open: every error becomes a degraded signal.
type Prober interface {
	Probe(ctx context.Context, target *url.URL) Report
}

// NoopProber skips every probe.
type NoopProber struct{}

func (NoopProber) Probe(context.Context, *url.URL) Report {
	return SkippedReport()
}

const maxRedirects = 10

var errTooManyRedirects = errors.New("too many redirects")

// HTTPProber probes reachability with HEAD then GET, counts redirect hops,
// and records whether the HTTPS certificate chain verified. Domain age is
// never looked up.
type HTTPProber struct {
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
}

// NewHTTPProber creates an HTTPProber. A nil transport uses http.DefaultTransport.
func NewHTTPProber(timeout time.Duration, userAgent string, transport http.RoundTripper) *HTTPProber {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &HTTPProber{
		timeout:   timeout,
		userAgent: userAgent,
		transport: transport,
	}
}

type attempt struct {
	status int
	hops   int
	err    error
}

func (p *HTTPProber) Probe(ctx context.Context, target *url.URL) Report {
	report := SkippedReport()
	if target == nil {
		return report
	}

	head := p.do(ctx, http.MethodHead, target)
	final := head
	if head.err != nil || head.status >= 400 {
		final = p.do(ctx, http.MethodGet, target)
	}

	switch {
	case final.err == nil:
		report.Reachable = measured(final.status < 400)
		report.Redirects = measured(final.hops)
	case head.err == nil:
		report.Reachable = measured(false)
		report.Redirects = measured(head.hops)
	case errors.Is(final.err, errTooManyRedirects):
		report.Reachable = degraded(false, final.err)
		report.Redirects = measured(maxRedirects)
	default:
		report.Reachable = degraded(false, final.err)
		report.Redirects = degraded(0, final.err)
	}

	if target.Scheme == "https" {
		report.TLSValid = tlsSignal(head, final)
	}

	return report
}

func (p *HTTPProber) do(ctx context.Context, method string, target *url.URL) attempt {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var hops int
	client := &http.Client{
		Transport: p.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			hops = len(via)
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return attempt{err: fmt.Errorf("build %s request: %w", method, err)}
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return attempt{hops: hops, err: err}
	}
	resp.Body.Close()

	return attempt{status: resp.StatusCode, hops: hops}
}

func tlsSignal(attempts ...attempt) Signal[bool] {
	var last error
	for _, a := range attempts {
		if a.err == nil {
			return measured(true)
		}
		if isCertError(a.err) {
			return measured(false)
		}
		last = a.err
	}
	return degraded(false, last)
}

func isCertError(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidCert)
}
