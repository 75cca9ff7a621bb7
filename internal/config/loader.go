package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".pubchemscan"

// xdgConfigFile is the file name looked up inside XDGConfigDir().
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .pubchemscan configuration file.
// Zero values leave the corresponding Config field unchanged.
type File struct {
	BaseURL     string            `yaml:"baseURL,omitempty"`
	UserAgent   string            `yaml:"userAgent,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty"`
	Delay       DelayFile         `yaml:"delay,omitempty"`
	BatchSize   int               `yaml:"batchSize,omitempty"`
	Retries     *int              `yaml:"retries,omitempty"`
	RateLimit   *float64          `yaml:"rateLimit,omitempty"`
	MaxBodySize int64             `yaml:"maxBodySize,omitempty"`
	CacheTTL    time.Duration     `yaml:"cacheTTL,omitempty"`
	DBDir       string            `yaml:"dbDir,omitempty"`
	Listen      string            `yaml:"listen,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
}

// DelayFile holds the delay bounds between related-record fetches.
type DelayFile struct {
	Min *time.Duration `yaml:"min,omitempty"`
	Max *time.Duration `yaml:"max,omitempty"`
}

// Apply overlays the values set in the file onto cfg.
// Pointer fields distinguish an explicit zero from an absent key.
func (f *File) Apply(cfg *Config) {
	if f.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(f.BaseURL, "/")
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.Timeout != 0 {
		cfg.Timeout = f.Timeout
	}
	if f.Delay.Min != nil {
		cfg.MinDelay = *f.Delay.Min
	}
	if f.Delay.Max != nil {
		cfg.MaxDelay = *f.Delay.Max
	}
	if f.BatchSize != 0 {
		cfg.BatchSize = f.BatchSize
	}
	if f.Retries != nil {
		cfg.MaxRetries = *f.Retries
	}
	if f.RateLimit != nil {
		cfg.RateLimit = *f.RateLimit
	}
	if f.MaxBodySize != 0 {
		cfg.MaxBodySize = f.MaxBodySize
	}
	if f.CacheTTL != 0 {
		cfg.CacheTTL = f.CacheTTL
	}
	if f.DBDir != "" {
		cfg.DBDir = f.DBDir
	}
	if f.Listen != "" {
		cfg.ListenAddress = f.Listen
	}
	if len(f.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(f.Headers))
		}
		for k, v := range f.Headers {
			cfg.Headers[k] = v
		}
	}
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .pubchemscan in the current directory
// 3. Look for .pubchemscan in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// ParseCIDs converts command-line arguments to compound identifiers.
// Duplicates are dropped, keeping the first occurrence.
func ParseCIDs(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, ErrNoTarget
	}

	seen := make(map[int]struct{}, len(args))
	cids := make([]int, 0, len(args))
	for _, arg := range args {
		cid, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || cid <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCID, arg)
		}
		if _, dup := seen[cid]; dup {
			continue
		}
		seen[cid] = struct{}{}
		cids = append(cids, cid)
	}
	return cids, nil
}
