package config

import "maps"

// SiteConfig holds site-specific overrides for a single host.
// Zero values mean "not set" and leave the global option in place.
type SiteConfig struct {
	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Headers are extra HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the global page limit for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// RespectRobotsTxt overrides robots.txt handling for this site.
	RespectRobotsTxt *bool `yaml:"respectRobotsTxt,omitempty"`

	// LowercaseURLs overrides URL lower-casing for this site.
	LowercaseURLs *bool `yaml:"lowercaseURLs,omitempty"`
}

// File represents the structure of the .seocheck.yaml configuration file.
type File struct {
	// Sites maps hosts (e.g. "www.example.com") to their overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults are applied to every site unless a site entry overrides them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host, merging the
// site-specific entry over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	siteConfig, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.RespectRobotsTxt != nil {
		result.RespectRobotsTxt = siteConfig.RespectRobotsTxt
	}
	if siteConfig.LowercaseURLs != nil {
		result.LowercaseURLs = siteConfig.LowercaseURLs
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}

	return result
}

// apply copies the set fields of s onto cfg.
func (s SiteConfig) apply(cfg *Config) {
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
	if s.Depth != 0 {
		cfg.MaxDepth = s.Depth
	}
	if s.MaxPages != 0 {
		cfg.MaxPages = s.MaxPages
	}
	if s.RespectRobotsTxt != nil {
		cfg.RespectRobotsTxt = *s.RespectRobotsTxt
	}
	if s.LowercaseURLs != nil {
		cfg.LowercaseURLs = *s.LowercaseURLs
	}
}

// HeadersFor returns the extra request headers configured for host.
func (c *Config) HeadersFor(host string) map[string]string {
	if c.SiteConfigs == nil {
		return nil
	}
	return c.SiteConfigs.GetSiteConfig(host).Headers
}

func (cf *File) clone() *File {
	out := &File{
		Defaults: cf.Defaults,
		Sites:    make(map[string]SiteConfig, len(cf.Sites)),
	}
	out.Defaults.Headers = maps.Clone(cf.Defaults.Headers)
	for host, sc := range cf.Sites {
		sc.Headers = maps.Clone(sc.Headers)
		out.Sites[host] = sc
	}
	return out
}
