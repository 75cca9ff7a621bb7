package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/nao1215/pubchemscan/internal/config"
)

// linkUIDPattern matches identifier tokens in secondary pages.
var linkUIDPattern = regexp.MustCompile(`(?i)link_uid=(\d+)`)

// DelayPolicy is a uniform random wait in [Min, Max].
type DelayPolicy struct {
	Min time.Duration
	Max time.Duration
}

// DefaultDelayPolicy returns the 5 to 8 second policy.
func DefaultDelayPolicy() DelayPolicy {
	return DelayPolicy{Min: config.DefaultMinDelay, Max: config.DefaultMaxDelay}
}

// Next draws a delay. When Max <= Min it always returns Min.
func (p DelayPolicy) Next() time.Duration {
	if p.Min < 0 {
		p.Min = 0
	}
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(rand.Int64N(int64(p.Max-p.Min)+1))
}

// String renders the policy as "min-max".
func (p DelayPolicy) String() string {
	return fmt.Sprintf("%s-%s", p.Min, p.Max)
}

// Resolver fetches secondary pages and extracts link_uid identifiers.
// A Resolver is safe for concurrent use; delay state lives in Sessions.
type Resolver struct {
	// client performs the HTTP requests.
	client *http.Client

	// delay is the wait drawn between fetches of one session.
	delay DelayPolicy

	// timeout bounds each fetch independently of the caller's context.
	// Zero disables the per-request bound.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize limits the bytes read from each response.
	maxBodySize int64

	// logger receives per-fetch diagnostics.
	logger *slog.Logger

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error

	requests atomic.Int64
	found    atomic.Int64
	failures atomic.Int64
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDelay sets the delay policy between fetches of one session.
func WithDelay(p DelayPolicy) ResolverOption {
	return func(r *Resolver) {
		r.delay = p
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ResolverOption {
	return func(r *Resolver) {
		r.userAgent = ua
	}
}

// WithMaxBodySize sets the response size limit.
func WithMaxBodySize(size int64) ResolverOption {
	return func(r *Resolver) {
		r.maxBodySize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// withWaitFunc replaces the sleep used between fetches. Tests use it to
// observe delays without sleeping.
func withWaitFunc(fn func(ctx context.Context, d time.Duration) error) ResolverOption {
	return func(r *Resolver) {
		r.wait = fn
	}
}

// NewResolver creates a Resolver. A nil client uses http.DefaultClient.
func NewResolver(client *http.Client, opts ...ResolverOption) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	r := &Resolver{
		client:      client,
		delay:       DefaultDelayPolicy(),
		timeout:     config.DefaultTimeout,
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		wait:        sleepContext,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Delay returns the configured delay policy.
func (r *Resolver) Delay() DelayPolicy {
	return r.delay
}

// ResolveIDs fetches pageURL and returns every link_uid value in document
// order, duplicates included. A non-2xx response returns an empty list.
// ResolveIDs never waits; use a Session to space consecutive fetches.
func (r *Resolver) ResolveIDs(ctx context.Context, pageURL string) ([]string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	req.Header.Set("Content-Type", "text/html; charset=UTF8")
	req.Header.Set("User-Agent", r.userAgent)

	r.requests.Add(1)
	resp, err := r.client.Do(req)
	if err != nil {
		r.failures.Add(1)
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, r.maxBodySize))
		r.logger.Debug("secondary page unavailable",
			"url", pageURL,
			"status", resp.StatusCode,
		)
		return []string{}, nil
	}

	body, err := r.readBody(resp)
	if err != nil {
		r.failures.Add(1)
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	ids := ScanIDs(body)
	r.found.Add(int64(len(ids)))
	r.logger.Debug("resolved related identifiers",
		"url", pageURL,
		"count", len(ids),
	)
	return ids, nil
}

// readBody reads the response up to the size limit and decodes it to UTF-8
// using the declared or sniffed charset.
func (r *Resolver) readBody(resp *http.Response) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		return "", err
	}

	enc, name, _ := charset.DetermineEncoding(raw, resp.Header.Get("Content-Type"))
	if name == "utf-8" {
		return string(raw), nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return string(decoded), nil
}

// ScanIDs returns the digits of every link_uid=<digits> token in text,
// matched case-insensitively, in order of appearance.
func ScanIDs(text string) []string {
	matches := linkUIDPattern.FindAllStringSubmatch(text, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}

// Stats returns counters accumulated across all sessions.
func (r *Resolver) Stats() Stats {
	return Stats{
		Requests:    int(r.requests.Load()),
		Failures:    int(r.failures.Load()),
		IDsResolved: int(r.found.Load()),
	}
}

// Stats contains resolver counters.
type Stats struct {
	// Requests is the number of secondary fetches issued.
	Requests int

	// Failures is the number of fetches that ended in a network or read error.
	Failures int

	// IDsResolved is the total number of identifiers returned.
	IDsResolved int
}

// NewSession starts a fetch sequence for one extraction.
func (r *Resolver) NewSession() *Session {
	return &Session{resolver: r}
}

// Session spaces the secondary fetches of one extraction.
// A Session must not be shared between goroutines.
type Session struct {
	resolver *Resolver
	fetches  int
	waited   time.Duration
}

// Resolve waits a random delay unless this is the session's first fetch,
// then resolves pageURL.
func (s *Session) Resolve(ctx context.Context, pageURL string) ([]string, error) {
	if s.fetches > 0 {
		d := s.resolver.delay.Next()
		if err := s.resolver.wait(ctx, d); err != nil {
			return nil, err
		}
		s.waited += d
	}
	s.fetches++
	return s.resolver.ResolveIDs(ctx, pageURL)
}

// Fetches returns the number of fetches started by this session.
func (s *Session) Fetches() int {
	return s.fetches
}

// Waited returns the total delay this session has spent between fetches.
func (s *Session) Waited() time.Duration {
	return s.waited
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
