package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxDepth limits the crawl to the seed page and the pages it links to.
	DefaultMaxDepth = 1

	// DefaultUserAgent is sent with every crawler, fetcher and probe request.
	DefaultUserAgent = "Go/seocheck"

	// DefaultRespectRobotsTxt makes the crawler skip URLs disallowed by robots.txt.
	DefaultRespectRobotsTxt = true

	// DefaultTimeout bounds a single HTTP request made by the crawler or the fetcher.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxConcurrency is the number of in-flight requests during crawling
	// and during body fetching for aggregation.
	DefaultMaxConcurrency = 5

	// DefaultDownloadUnsupported controls whether non-HTML responses are downloaded.
	DefaultDownloadUnsupported = false

	// DefaultMaxAttempts is the total number of fetch attempts (1 initial + 3 retries).
	DefaultMaxAttempts = 4

	// DefaultRetryBackoff is the base delay between fetch attempts. Zero retries immediately.
	DefaultRetryBackoff = time.Duration(0)

	// DefaultCheckTimeout bounds each auxiliary check (sitemap, robots, TLS).
	DefaultCheckTimeout = 15 * time.Second

	// DefaultMaxPages caps the number of pages a single crawl may fetch.
	DefaultMaxPages = 500

	// DefaultCrawlDelay is the minimum interval between two crawler requests.
	DefaultCrawlDelay = time.Duration(0)

	// DefaultMaxBodySize limits how much of a response body is read (5MB).
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultReportFormat is the human readable text report.
	DefaultReportFormat = FormatSimple

	// AppName is the application name used for XDG directory paths.
	AppName = "seocheck"
)

// Report formats accepted by Config.ReportFormat.
const (
	FormatSimple   = "simple"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Config holds all configuration options for seocheck.
// It is populated from defaults, the YAML configuration file and CLI flags,
// and then copied into each engine instance.
type Config struct {
	// MaxDepth is the maximum link depth followed from the seed URL.
	// Depth 0 means only the seed page is fetched.
	MaxDepth int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// RespectRobotsTxt makes the crawler report robots.txt disallowed URLs
	// as ignored instead of fetching them.
	RespectRobotsTxt bool

	// Timeout is the per-request timeout for crawling and page fetching.
	Timeout time.Duration

	// MaxConcurrency is the number of concurrent requests.
	MaxConcurrency int

	// DownloadUnsupported makes the crawler download responses whose content
	// type is not HTML. When false those responses are skipped.
	DownloadUnsupported bool

	// LowercaseURLs lower-cases URLs before fetching them. Off by default
	// because it breaks servers with case-sensitive paths.
	LowercaseURLs bool

	// MaxAttempts is the total number of attempts the page fetcher makes
	// before giving up on a URL.
	MaxAttempts int

	// RetryBackoff is the base delay between fetch attempts. The delay
	// doubles after every failed attempt. Zero disables the delay.
	RetryBackoff time.Duration

	// CheckTimeout bounds each auxiliary check.
	CheckTimeout time.Duration

	// MaxPages caps the number of pages fetched during one crawl.
	// 0 means no limit beyond MaxDepth.
	MaxPages int

	// CrawlDelay is the minimum interval between two crawler requests.
	CrawlDelay time.Duration

	// MaxBodySize is the maximum number of body bytes read per response.
	// 0 falls back to DefaultMaxBodySize.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat selects "text" (default) or "json" log output.
	LogFormat string

	// ReportFormat selects the report writer: simple, json, markdown or csv.
	ReportFormat string

	// ReportFile is the output path for the report. Empty writes to stdout.
	ReportFile string

	// ConfigFilePath is the path of the YAML configuration file.
	// When empty the file is searched for, see FindConfigFile.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the configuration file.
	SiteConfigs *File

	// DBDir is the directory holding the report history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB stores every finished report in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:            DefaultMaxDepth,
		UserAgent:           DefaultUserAgent,
		RespectRobotsTxt:    DefaultRespectRobotsTxt,
		Timeout:             DefaultTimeout,
		MaxConcurrency:      DefaultMaxConcurrency,
		DownloadUnsupported: DefaultDownloadUnsupported,
		MaxAttempts:         DefaultMaxAttempts,
		RetryBackoff:        DefaultRetryBackoff,
		CheckTimeout:        DefaultCheckTimeout,
		MaxPages:            DefaultMaxPages,
		CrawlDelay:          DefaultCrawlDelay,
		MaxBodySize:         DefaultMaxBodySize,
		LogFormat:           "text",
		ReportFormat:        DefaultReportFormat,
		DBDir:               XDGDataDir(),
		SaveToDB:            true,
	}
}

// Clone returns a deep copy of the configuration.
// Engines keep a clone so later changes to the caller's Config have no effect.
func (c *Config) Clone() *Config {
	clone := *c
	if c.SiteConfigs != nil {
		clone.SiteConfigs = c.SiteConfigs.clone()
	}
	return &clone
}

// ForSite returns a copy of the configuration with the overrides for host
// applied. The receiver is left unchanged.
func (c *Config) ForSite(host string) *Config {
	clone := c.Clone()
	if clone.SiteConfigs == nil {
		return clone
	}
	site := clone.SiteConfigs.GetSiteConfig(host)
	site.apply(clone)
	return clone
}

// EffectiveMaxBodySize returns MaxBodySize, or the default when unset.
func (c *Config) EffectiveMaxBodySize() int64 {
	if c.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}

// XDGDataDir returns the XDG data directory for seocheck.
// On Linux: ~/.local/share/seocheck
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for seocheck.
// On Linux: ~/.config/seocheck
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors in errors.go.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CheckTimeout <= 0 {
		return ErrInvalidCheckTimeout
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxConcurrency <= 0 {
		return ErrInvalidMaxConcurrency
	}
	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.UserAgent == "" {
		return ErrEmptyUserAgent
	}

	switch c.ReportFormat {
	case FormatSimple, FormatJSON, FormatMarkdown, FormatCSV:
	default:
		return ErrUnknownReportFormat
	}

	return nil
}
