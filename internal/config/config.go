package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pubchemscan"

	// DefaultBaseURL is the PubChem host serving PUG View.
	DefaultBaseURL = "https://pubchem.ncbi.nlm.nih.gov"

	// DefaultTimeout bounds each individual HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMinDelay is the shortest wait between related-record fetches
	// of one lookup.
	DefaultMinDelay = 5 * time.Second

	// DefaultMaxDelay is the longest wait between related-record fetches
	// of one lookup.
	DefaultMaxDelay = 8 * time.Second

	// DefaultBatchSize is the number of compounds looked up concurrently.
	// PubChem allows 5 requests per second; 4 lookups leave headroom for
	// their secondary fetches.
	DefaultBatchSize = 4

	// DefaultMaxRetries is how many times a transient primary failure
	// (network error, 429, 5xx) is retried.
	DefaultMaxRetries = 2

	// DefaultRateLimit caps primary requests per second across all lookups.
	DefaultRateLimit = 5

	// DefaultMaxBodySize limits the response body size to read.
	// Full PUG View records for well-studied compounds exceed 10MB.
	DefaultMaxBodySize = 20 * 1024 * 1024 // 20MB

	// DefaultCacheTTL is how long a cached lookup is served without
	// contacting PubChem.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultUserAgent identifies pubchemscan in HTTP requests.
	DefaultUserAgent = "pubchemscan/1.0 (+https://github.com/nao1215/pubchemscan)"

	// DefaultListenAddress is where the serve command listens.
	DefaultListenAddress = ":8080"
)

// Config holds all configuration options for pubchemscan.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed through the application explicitly.
type Config struct {
	// BaseURL is the PubChem scheme and host.
	BaseURL string

	// Timeout is the per-request timeout for primary and secondary fetches.
	// It is separate from the delay between secondary fetches.
	Timeout time.Duration

	// MinDelay and MaxDelay bound the random wait between the
	// related-record fetches of one lookup.
	MinDelay time.Duration
	MaxDelay time.Duration

	// BatchSize is the number of concurrent lookups for multiple CIDs.
	BatchSize int

	// MaxRetries is the retry count for transient primary failures.
	MaxRetries int

	// RateLimit is the primary request ceiling per second. 0 disables it.
	RateLimit float64

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Headers are extra HTTP headers sent with primary requests, e.g. for
	// an authenticating proxy. Values are masked in logs.
	Headers map[string]string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output from text to JSON lines.
	JSONLog bool

	// JSONReport, MarkdownReport and TextReport select the output format.
	// At most one may be set; JSON is used when none is.
	JSONReport     bool
	MarkdownReport bool
	TextReport     bool

	// ReportFile is the output path. Empty means stdout.
	ReportFile string

	// Targets is the list of compound identifiers to look up.
	Targets []int

	// ConfigFilePath is an explicit configuration file path.
	ConfigFilePath string

	// DBDir is the directory holding the SQLite cache.
	// Empty means XDGDataDir().
	DBDir string

	// UseCache enables reading and writing the SQLite cache.
	UseCache bool

	// Refresh bypasses cached results but still stores new ones.
	Refresh bool

	// CacheTTL is the maximum age of a cached lookup. 0 means cached
	// results never expire.
	CacheTTL time.Duration

	// ListenAddress is the HTTP API listen address.
	ListenAddress string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeout,
		MinDelay:      DefaultMinDelay,
		MaxDelay:      DefaultMaxDelay,
		BatchSize:     DefaultBatchSize,
		MaxRetries:    DefaultMaxRetries,
		RateLimit:     DefaultRateLimit,
		MaxBodySize:   DefaultMaxBodySize,
		UserAgent:     DefaultUserAgent,
		Headers:       make(map[string]string),
		UseCache:      true,
		CacheTTL:      DefaultCacheTTL,
		ListenAddress: DefaultListenAddress,
	}
}

// XDGDataDir returns the XDG data directory for pubchemscan.
// On Linux: ~/.local/share/pubchemscan
// On macOS: ~/Library/Application Support/pubchemscan
// On Windows: %LOCALAPPDATA%\pubchemscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pubchemscan.
// On Linux: ~/.config/pubchemscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabaseDir returns DBDir, or the XDG data directory when unset.
func (c *Config) DatabaseDir() string {
	if c.DBDir != "" {
		return c.DBDir
	}
	return XDGDataDir()
}

// Validate checks the settings shared by every command.
// It returns the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MinDelay < 0 || c.MaxDelay < 0 || c.MinDelay > c.MaxDelay {
		return ErrInvalidDelay
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	formats := 0
	for _, set := range []bool{c.JSONReport, c.MarkdownReport, c.TextReport} {
		if set {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}

	return nil
}

// ValidateLookup runs Validate and additionally requires targets.
func (c *Config) ValidateLookup() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}
