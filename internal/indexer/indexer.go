// Package indexer implements the runtime side of search federation: an
// Indexer executes one provider's requests with auth, rate limits, and
// failure tracking; a Manager fans searches out across all of them.
package indexer

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/adapter"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/ratelimit"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/types"
)

const (
	defaultTimeout = 30 * time.Second

	// Consecutive failures before the circuit opens.
	failureThreshold = 3

	maxResponseBytes = 10 << 20
)

// Indexer wraps one configured provider with an HTTP client, a rate limiter,
// and health counters. All methods are safe for concurrent use.
type Indexer struct {
	cfg     types.IndexerConfig
	adapter adapter.Adapter
	client  *http.Client
	limiter *ratelimit.Limiter
	logger  zerolog.Logger

	mu                  sync.Mutex
	available           bool
	consecutiveFailures int
	lastError           string
	lastSuccess         time.Time
	caps                *types.Capabilities
	version             string
}

// Option customizes an Indexer at construction.
type Option func(*Indexer)

// WithTransport swaps the HTTP transport, primarily for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(i *Indexer) {
		i.client.Transport = rt
	}
}

// New builds an indexer from its config and resolved adapter.
func New(cfg types.IndexerConfig, ad adapter.Adapter, logger zerolog.Logger, opts ...Option) *Indexer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	idx := &Indexer{
		cfg:       cfg,
		adapter:   ad,
		client:    &http.Client{Timeout: timeout, Transport: transport},
		limiter:   ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.MaxConcurrent),
		logger:    logger.With().Str("component", "indexer").Str("indexer", cfg.Key).Logger(),
		available: true,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Key returns the config key identifying this indexer.
func (i *Indexer) Key() string { return i.cfg.Key }

// Name returns the display name.
func (i *Indexer) Name() string { return i.cfg.Name }

// Priority returns the configured priority (lower searches first).
func (i *Indexer) Priority() int { return i.cfg.Priority }

// Available reports whether the circuit is closed.
func (i *Indexer) Available() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.available
}

// Status returns a snapshot of runtime health.
func (i *Indexer) Status() types.IndexerStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	st := types.IndexerStatus{
		Key:                 i.cfg.Key,
		Name:                i.cfg.Name,
		Priority:            i.cfg.Priority,
		Available:           i.available,
		ConsecutiveFailures: i.consecutiveFailures,
		LastError:           i.lastError,
		Capabilities:        i.caps,
	}
	if !i.lastSuccess.IsZero() {
		t := i.lastSuccess
		st.LastSuccess = &t
	}
	return st
}

// Connect performs a connection test and reports success.
func (i *Indexer) Connect(ctx context.Context) bool {
	return i.TestConnection(ctx).Success
}

// TestConnection runs the provider health check. It executes even when the
// circuit is open: a success here is what closes it again.
func (i *Indexer) TestConnection(ctx context.Context) types.TestResult {
	spec := i.adapter.BuildHealthRequest()
	if spec == nil {
		// Provider has no health endpoint; liveness comes from searches.
		i.markSuccess()
		return types.TestResult{Success: true}
	}
	payload, err := i.execute(ctx, spec)
	if err != nil {
		i.markFailure(err)
		return types.TestResult{Success: false, Error: err.Error()}
	}
	caps, version, err := i.adapter.ParseHealthResponse(payload)
	if err != nil {
		perr := NewParseError(i.cfg.Key, err)
		i.markFailure(perr)
		return types.TestResult{Success: false, Error: perr.Error()}
	}
	i.mu.Lock()
	i.caps = caps
	i.version = version
	i.mu.Unlock()
	i.markSuccess()
	return types.TestResult{Success: true, Capabilities: caps, Version: version}
}

// Search runs one logical search against the provider. When the circuit is
// open it fails fast without any network traffic.
func (i *Indexer) Search(ctx context.Context, params types.SearchParams) ([]types.Result, error) {
	if !i.Available() {
		return nil, NewUnavailableError(i.cfg.Key)
	}
	specs, err := i.adapter.BuildSearchRequests(params)
	if err != nil {
		return nil, NewConfigError(i.cfg.Key, err.Error())
	}

	scraper, twoPhase := i.adapter.(adapter.DetailScraper)
	var all []types.Result
	for _, spec := range specs {
		spec := spec
		payload, err := i.execute(ctx, &spec)
		if err != nil {
			i.markFailure(err)
			return nil, err
		}
		if payload == nil {
			continue
		}
		var results []types.Result
		if twoPhase {
			results, err = i.scrapeDetails(ctx, scraper, payload)
		} else {
			results, err = i.adapter.ParseSearchResults(payload)
			if err != nil {
				err = NewParseError(i.cfg.Key, err)
			}
		}
		if err != nil {
			i.markFailure(err)
			return nil, err
		}
		all = append(all, results...)
	}
	i.markSuccess()

	out := all[:0]
	for _, r := range all {
		if !i.matchesLanguage(r.Language) {
			continue
		}
		r.IndexerName = i.cfg.Name
		out = append(out, r)
	}
	i.logger.Debug().
		Str("query", params.Query).
		Int("results", len(out)).
		Msg("Search completed")
	return out, nil
}

// scrapeDetails fetches and parses the detail pages referenced by a listing
// payload. Individual page failures drop that item rather than the search.
func (i *Indexer) scrapeDetails(ctx context.Context, scraper adapter.DetailScraper, listing []byte) ([]types.Result, error) {
	detailSpecs, err := scraper.ExtractDetailRequests(listing)
	if err != nil {
		return nil, NewParseError(i.cfg.Key, err)
	}
	var results []types.Result
	for _, spec := range detailSpecs {
		spec := spec
		payload, err := i.execute(ctx, &spec)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			i.logger.Debug().Err(err).Str("path", spec.Path).Msg("Detail page fetch failed")
			continue
		}
		if payload == nil {
			continue
		}
		r, err := scraper.ParseDetailPage(payload)
		if err != nil {
			i.logger.Debug().Err(err).Str("path", spec.Path).Msg("Detail page parse failed")
			continue
		}
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, nil
}

// execute runs one request through the limiter and client, returning the
// body. A 404 on an AllowMissing request returns (nil, nil).
func (i *Indexer) execute(ctx context.Context, spec *types.RequestSpec) ([]byte, error) {
	if err := i.limiter.Acquire(ctx); err != nil {
		return nil, i.transportError(err)
	}
	defer i.limiter.Release()

	req, err := i.buildRequest(ctx, spec)
	if err != nil {
		return nil, NewConfigError(i.cfg.Key, err.Error())
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, i.transportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewAuthError(i.cfg.Key, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		if spec.AllowMissing {
			return nil, nil
		}
		return nil, NewNotFoundError(i.cfg.Key)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Code: ErrCodeRateLimited, Message: "rate limit exceeded", IndexerKey: i.cfg.Key, Retryable: true}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, NewHTTPError(i.cfg.Key, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewNetworkError(i.cfg.Key, err)
	}
	return body, nil
}

func (i *Indexer) buildRequest(ctx context.Context, spec *types.RequestSpec) (*http.Request, error) {
	base := strings.TrimRight(i.cfg.BaseURL, "/")
	fullURL := base + spec.Path
	if len(spec.Params) > 0 {
		fullURL += "?" + spec.Params.Encode()
	}
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(spec.Form) > 0 {
		body = strings.NewReader(spec.Form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	if len(spec.Form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if spec.ExpectsJSON {
		req.Header.Set("Accept", "application/json")
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}
	i.injectAuth(req)
	return req, nil
}

// injectAuth attaches credentials for direct providers. Torznab endpoints
// carry the API key as a query parameter set by the adapter instead.
func (i *Indexer) injectAuth(req *http.Request) {
	if i.cfg.Type != types.IndexerTypeDirect {
		return
	}
	bearer := i.cfg.APIKey
	if bearer == "" {
		bearer = i.cfg.SessionID
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if i.cfg.SessionID != "" {
		req.Header.Set("X-Session-ID", i.cfg.SessionID)
		req.AddCookie(&http.Cookie{Name: "mam_id", Value: i.cfg.SessionID})
		req.AddCookie(&http.Cookie{Name: "session", Value: i.cfg.SessionID})
		req.AddCookie(&http.Cookie{Name: "session_id", Value: i.cfg.SessionID})
	}
}

// transportError classifies client/limiter failures into the taxonomy.
func (i *Indexer) transportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(i.cfg.Key, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return NewTimeoutError(i.cfg.Key, err)
	}
	return NewNetworkError(i.cfg.Key, err)
}

func (i *Indexer) matchesLanguage(lang string) bool {
	if len(i.cfg.Languages) == 0 || lang == "" {
		return true
	}
	lang = strings.ToLower(lang)
	for _, want := range i.cfg.Languages {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		if lang == want || strings.HasPrefix(lang, want) || strings.HasPrefix(want, lang) {
			return true
		}
	}
	return false
}

func (i *Indexer) markSuccess() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.consecutiveFailures = 0
	i.lastError = ""
	i.lastSuccess = time.Now()
	if !i.available {
		i.available = true
		i.logger.Info().Msg("Indexer recovered, circuit closed")
	}
}

func (i *Indexer) markFailure(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.consecutiveFailures++
	i.lastError = err.Error()
	if i.consecutiveFailures >= failureThreshold && i.available {
		i.available = false
		i.logger.Warn().
			Int("consecutive_failures", i.consecutiveFailures).
			Str("last_error", i.lastError).
			Msg("Circuit opened after repeated failures")
	}
}
