package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/seocheck/internal/log"
	"github.com/nao1215/seocheck/internal/model"
)

// PageAnalyzer produces page summaries and findings for a set of pages.
// urls and bodies are parallel slices. An empty body means the page could
// not be fetched.
//
// Implementations must return a non-nil analysis with non-nil Issues when
// they return a nil error. Validate checks this.
type PageAnalyzer interface {
	AnalyzePages(ctx context.Context, urls, bodies []string) (*model.PageAnalysis, error)
}

// PageAnalyzerFunc adapts a function to PageAnalyzer.
type PageAnalyzerFunc func(ctx context.Context, urls, bodies []string) (*model.PageAnalysis, error)

// AnalyzePages calls f.
func (f PageAnalyzerFunc) AnalyzePages(ctx context.Context, urls, bodies []string) (*model.PageAnalysis, error) {
	return f(ctx, urls, bodies)
}

// Validate reports whether analysis can be merged into a report.
func Validate(analysis *model.PageAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("%w: nil analysis", ErrAnalyzerContract)
	}
	if analysis.Issues == nil {
		return fmt.Errorf("%w: nil issues", ErrAnalyzerContract)
	}
	return nil
}

// PageRule inspects one page.
type PageRule interface {
	// Name identifies the rule in logs.
	Name() string

	// Check returns the findings raised on page.
	Check(ctx context.Context, page *Page) ([]model.Finding, error)
}

// SiteRule inspects all pages together, for findings such as duplicates.
type SiteRule interface {
	Name() string
	CheckSite(ctx context.Context, pages []*Page) ([]model.Finding, error)
}

// Coordinator runs page and site rules over a set of pages.
type Coordinator struct {
	pageRules []PageRule
	siteRules []SiteRule
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used to report failing rules.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = log.OrDiscard(logger)
	}
}

// WithoutBuiltinRules starts from an empty rule set.
func WithoutBuiltinRules() Option {
	return func(c *Coordinator) {
		c.pageRules = nil
		c.siteRules = nil
	}
}

// NewCoordinator creates a Coordinator with the built-in rules registered.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{logger: log.Discard()}

	c.RegisterPageRule(TitleRule{})
	c.RegisterPageRule(DescriptionRule{})
	c.RegisterPageRule(HeadingRule{})
	c.RegisterPageRule(ImageAltRule{})
	c.RegisterPageRule(HeadRule{})
	c.RegisterPageRule(RobotsMetaRule{})
	c.RegisterPageRule(TransportSecurityRule{})

	c.RegisterSiteRule(DuplicateTitleRule{})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterPageRule adds a page rule.
func (c *Coordinator) RegisterPageRule(rule PageRule) {
	c.pageRules = append(c.pageRules, rule)
}

// RegisterSiteRule adds a site rule.
func (c *Coordinator) RegisterSiteRule(rule SiteRule) {
	c.siteRules = append(c.siteRules, rule)
}

// AnalyzePages parses every body and runs the registered rules.
// Pages with an empty body get an empty_body finding and no other page rule.
func (c *Coordinator) AnalyzePages(ctx context.Context, urls, bodies []string) (*model.PageAnalysis, error) {
	if len(urls) != len(bodies) {
		return nil, fmt.Errorf("%w: %d urls, %d bodies", ErrLengthMismatch, len(urls), len(bodies))
	}

	issues := model.NewIssues()
	summaries := make([]model.PageSummary, 0, len(urls))
	parsed := make([]*Page, 0, len(urls))

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if bodies[i] == "" {
			f := model.NewFinding(model.RuleEmptyBody, u, "")
			issues.Add(f)
			summaries = append(summaries, model.PageSummary{URL: u, Empty: true, FindingCount: 1})
			continue
		}

		page, err := ParsePage(u, bodies[i])
		if err != nil {
			c.logger.Debug("page could not be parsed", "url", u, "error", err)
			f := model.NewFinding(model.RuleEmptyBody, u, "")
			issues.Add(f)
			summaries = append(summaries, model.PageSummary{URL: u, Empty: true, FindingCount: 1})
			continue
		}
		parsed = append(parsed, page)

		findings := dedupe(c.runPageRules(ctx, page))
		for _, f := range findings {
			issues.Add(f)
		}
		summaries = append(summaries, page.Summary(len(findings)))
	}

	for _, rule := range c.siteRules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		findings, err := rule.CheckSite(ctx, parsed)
		if err != nil {
			c.logger.Warn("site rule failed", "rule", rule.Name(), "error", err)
			continue
		}
		for _, f := range findings {
			issues.Add(f)
		}
	}

	return &model.PageAnalysis{Pages: summaries, Issues: issues}, nil
}

func (c *Coordinator) runPageRules(ctx context.Context, page *Page) []model.Finding {
	var all []model.Finding
	for _, rule := range c.pageRules {
		findings, err := rule.Check(ctx, page)
		if err != nil {
			// One broken rule must not hide the others.
			c.logger.Warn("page rule failed", "rule", rule.Name(), "url", page.URL, "error", err)
			continue
		}
		all = append(all, findings...)
	}
	return all
}

// dedupe removes findings with the same rule, URL and value, keeping the
// first occurrence.
func dedupe(findings []model.Finding) []model.Finding {
	seen := make(map[string]struct{}, len(findings))
	result := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		key := f.Rule + "|" + f.URL + "|" + f.Value
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, f)
	}
	return result
}
