package pubchem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/nao1215/pubchemscan/internal/config"
	"github.com/nao1215/pubchemscan/internal/model"
)

// Client fetches PUG View compound records.
// A Client is safe for concurrent use; its rate limiter is shared by all
// callers.
type Client struct {
	// httpClient performs the requests.
	httpClient *http.Client

	// baseURL is the scheme and host, without trailing slash.
	baseURL string

	// userAgent is sent with every request.
	userAgent string

	// headers are extra request headers, e.g. for an authenticating proxy.
	headers map[string]string

	// limiter caps the primary request rate across goroutines.
	limiter *rate.Limiter

	// maxRetries is how many times a retryable failure is repeated.
	maxRetries int

	// backoffBase is the first retry delay.
	backoffBase time.Duration

	// maxBodySize limits the bytes read from each response.
	maxBodySize int64

	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the PubChem host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeaders adds request headers.
func WithHeaders(h map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithRateLimit sets the sustained request rate. Zero or negative disables
// limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := max(int(perSecond), 1)
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetry sets the retry count and the first backoff delay.
func WithRetry(maxRetries int, base time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max(maxRetries, 0)
		c.backoffBase = base
	}
}

// WithMaxBodySize sets the response size limit.
func WithMaxBodySize(size int64) ClientOption {
	return func(c *Client) {
		c.maxBodySize = size
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: config.DefaultTimeout},
		baseURL:     config.DefaultBaseURL,
		userAgent:   config.DefaultUserAgent,
		headers:     make(map[string]string),
		limiter:     rate.NewLimiter(rate.Limit(config.DefaultRateLimit), config.DefaultRateLimit),
		maxRetries:  config.DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		maxBodySize: config.DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// RecordURL returns the PUG View address for cid.
func (c *Client) RecordURL(cid int) string {
	return fmt.Sprintf("%s/rest/pug_view/data/compound/%d/JSON/?", c.baseURL, cid)
}

// FetchRecord retrieves and decodes the record for cid, retrying transient
// failures with exponential backoff. Fetch failures are *TransportError.
func (c *Client) FetchRecord(ctx context.Context, cid int) (*model.Record, error) {
	if cid <= 0 {
		return nil, ErrInvalidCID
	}

	for attempt := 0; ; attempt++ {
		rec, err := c.fetchOnce(ctx, cid)
		if err == nil {
			return rec, nil
		}

		var te *TransportError
		if attempt >= c.maxRetries || !errors.As(err, &te) || !te.Retryable() {
			return nil, err
		}
		// A timeout of the caller's context ends the lookup; only the
		// per-request timeout of the HTTP client is transient.
		if ctx.Err() != nil {
			return nil, err
		}

		wait := Backoff(c.backoffBase, attempt)
		c.logger.Warn("retrying PubChem request",
			"cid", cid,
			"attempt", attempt+1,
			"status", te.StatusCode,
			"backoff", wait,
		)
		select {
		case <-ctx.Done():
			return nil, &TransportError{CID: cid, URL: te.URL, Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, cid int) (*model.Record, error) {
	recordURL := c.RecordURL(cid)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{CID: cid, URL: recordURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordURL, nil)
	if err != nil {
		return nil, &TransportError{CID: cid, URL: recordURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF8")
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{CID: cid, URL: recordURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, &TransportError{CID: cid, URL: recordURL, StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.Debug("fetched PubChem record",
		"cid", cid,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			CID:        cid,
			URL:        recordURL,
			StatusCode: resp.StatusCode,
			Fault:      faultMessage(body),
		}
	}

	var doc model.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &TransportError{
			CID:        cid,
			URL:        recordURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %w", ErrMalformedRecord, err),
		}
	}
	return &doc.Record, nil
}

// faultMessage extracts the PUG View Fault code and message from an error
// body. Non-JSON bodies yield "".
func faultMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	fault := gjson.GetBytes(body, "Fault")
	if !fault.Exists() {
		return ""
	}

	code := fault.Get("Code").String()
	msg := fault.Get("Message").String()
	details := fault.Get("Details.0").String()

	parts := make([]string, 0, 3)
	for _, p := range []string{code, msg, details} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ": ")
}
