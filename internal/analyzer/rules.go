package analyzer

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seocheck/internal/model"
)

// Length limits beyond which search engines truncate snippets.
const (
	MaxTitleLength       = 60
	MaxDescriptionLength = 160
)

// TitleRule checks that a page has a title of reasonable length.
type TitleRule struct{}

// Name implements PageRule.
func (TitleRule) Name() string { return "title" }

// Check implements PageRule.
func (TitleRule) Check(_ context.Context, p *Page) ([]model.Finding, error) {
	switch {
	case p.Title == "":
		return []model.Finding{model.NewFinding(model.RuleTitleMissing, p.URL, "")}, nil
	case utf8.RuneCountInString(p.Title) > MaxTitleLength:
		return []model.Finding{model.NewFinding(model.RuleTitleTooLong, p.URL, p.Title)}, nil
	}
	return nil, nil
}

// DescriptionRule checks the meta description.
type DescriptionRule struct{}

// Name implements PageRule.
func (DescriptionRule) Name() string { return "description" }

// Check implements PageRule.
func (DescriptionRule) Check(_ context.Context, p *Page) ([]model.Finding, error) {
	switch {
	case p.Description == "":
		return []model.Finding{model.NewFinding(model.RuleDescriptionMissing, p.URL, "")}, nil
	case utf8.RuneCountInString(p.Description) > MaxDescriptionLength:
		return []model.Finding{model.NewFinding(model.RuleDescriptionTooLong, p.URL, p.Description)}, nil
	}
	return nil, nil
}

// HeadingRule checks that a page has exactly one h1.
type HeadingRule struct{}

// Name implements PageRule.
func (HeadingRule) Name() string { return "heading" }

// Check implements PageRule.
func (HeadingRule) Check(_ context.Context, p *Page) ([]model.Finding, error) {
	switch n := p.Doc.Find("h1").Length(); {
	case n == 0:
		return []model.Finding{model.NewFinding(model.RuleH1Missing, p.URL, "")}, nil
	case n > 1:
		return []model.Finding{model.NewFinding(model.RuleH1Multiple, p.URL, strconv.Itoa(n))}, nil
	}
	return nil, nil
}

// ImageAltRule flags images without an alt attribute. An empty alt is
// allowed: it marks decorative images.
type ImageAltRule struct{}

// Name implements PageRule.
func (ImageAltRule) Name() string { return "image_alt" }

// Check implements PageRule.
func (ImageAltRule) Check(_ context.Context, p *Page) ([]model.Finding, error) {
	var findings []model.Finding
	p.Doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if _, ok := sel.Attr("alt"); ok {
			return
		}
		findings = append(findings, model.NewFinding(model.RuleImageAltMissing, p.URL, sel.AttrOr("src", "")))
	})
	return findings, nil
}

// HeadRule checks document-level declarations: canonical link, html lang
// and the viewport meta tag.
type HeadRule struct{}

// Name implements PageRule.
func (HeadRule) Name() string { return "head" }

// Check implements PageRule.
func (HeadRule) Check(_ context.Context, p *Page) ([]model.Finding, error) {
	var findings []model.Finding
	if p.Canonical == "" {
		findings = append(findings, model.NewFinding(model.RuleCanonicalMissing, p.URL, ""))
	}
	if p.Lang == "" {
		findings = append(findings, model.NewFinding(model.RuleLangMissing, p.URL, ""))
	}
	if p.Doc.Find(`meta[name="viewport"]`).Length() == 0 {
		findings = append(findings, model.NewFinding(model.RuleViewportMissing, p.URL, ""))
	}
	return findings, nil
}

// RobotsMetaRule flags pages that forbid following any link.
type RobotsMetaRule struct{}

// Name implements PageRule.
func (RobotsMetaRule) Name() string { return "robots_meta" }

// Check implements PageRule.
func (RobotsMetaRule) Check(_ context.Context, p *Page) ([]model.Finding, error) {
	if p.HasRobotsDirective("nofollow") || p.HasRobotsDirective("none") {
		return []model.Finding{model.NewFinding(model.RuleNoFollowAll, p.URL, strings.Join(p.Robots, ","))}, nil
	}
	return nil, nil
}

// TransportSecurityRule flags HTTPS pages that load sub-resources over
// plain HTTP and forms that submit over plain HTTP.
type TransportSecurityRule struct{}

// Name implements PageRule.
func (TransportSecurityRule) Name() string { return "transport_security" }

// Check implements PageRule.
func (TransportSecurityRule) Check(_ context.Context, p *Page) ([]model.Finding, error) {
	var findings []model.Finding

	if p.Secure() {
		p.Doc.Find("img[src], script[src], iframe[src], audio[src], video[src], source[src], link[rel=stylesheet][href]").
			Each(func(_ int, sel *goquery.Selection) {
				ref := sel.AttrOr("src", sel.AttrOr("href", ""))
				if isPlainHTTP(ref) {
					findings = append(findings, model.NewFinding(model.RuleMixedContent, p.URL, ref))
				}
			})
	}

	p.Doc.Find("form[action]").Each(func(_ int, sel *goquery.Selection) {
		if action := sel.AttrOr("action", ""); isPlainHTTP(action) {
			findings = append(findings, model.NewFinding(model.RuleInsecureFormAction, p.URL, action))
		}
	})

	return findings, nil
}

// DuplicateTitleRule flags titles shared by more than one page.
type DuplicateTitleRule struct{}

// Name implements SiteRule.
func (DuplicateTitleRule) Name() string { return "duplicate_title" }

// CheckSite implements SiteRule. One finding is raised per page carrying a
// shared title, in page order.
func (DuplicateTitleRule) CheckSite(_ context.Context, pages []*Page) ([]model.Finding, error) {
	// A URL crawled twice does not duplicate itself.
	urlsByTitle := make(map[string]map[string]struct{}, len(pages))
	for _, p := range pages {
		if p.Title == "" {
			continue
		}
		if urlsByTitle[p.Title] == nil {
			urlsByTitle[p.Title] = make(map[string]struct{})
		}
		urlsByTitle[p.Title][p.URL] = struct{}{}
	}

	var findings []model.Finding
	seen := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		if len(urlsByTitle[p.Title]) < 2 {
			continue
		}
		if _, ok := seen[p.URL]; ok {
			continue
		}
		seen[p.URL] = struct{}{}
		findings = append(findings, model.NewFinding(model.RuleTitleDuplicate, p.URL, p.Title))
	}
	return findings, nil
}

func isPlainHTTP(ref string) bool {
	ref = strings.TrimSpace(ref)
	return len(ref) >= len("http://") && strings.EqualFold(ref[:len("http://")], "http://")
}
