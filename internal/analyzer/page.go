package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"

	"github.com/nao1215/seocheck/internal/model"
)

// Page is a parsed page with the head fields most rules need.
type Page struct {
	// URL is the page URL as given to the analyzer.
	URL string

	// Doc is the parsed document.
	Doc *goquery.Document

	// Title is the trimmed text of the first <title>.
	Title string

	// Description is the content of the meta description.
	Description string

	// Canonical is the href of the canonical link.
	Canonical string

	// Lang is the lang attribute of <html>.
	Lang string

	// Robots lists the folded directives of the robots meta tag.
	Robots []string

	// WordCount is the number of words of visible body text.
	WordCount int

	secure bool
}

// ParsePage parses body as the page at rawURL.
func ParsePage(rawURL, body string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	p := &Page{URL: rawURL, Doc: doc}
	if u, err := url.Parse(rawURL); err == nil {
		p.secure = u.Scheme == "https"
	}

	p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	p.Lang = strings.TrimSpace(doc.Find("html").First().AttrOr("lang", ""))

	doc.Find("meta[name]").Each(func(_ int, sel *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(sel.AttrOr("name", "")))
		content := strings.TrimSpace(sel.AttrOr("content", ""))
		switch name {
		case "description":
			if p.Description == "" {
				p.Description = content
			}
		case "robots":
			p.Robots = append(p.Robots, directives(content)...)
		}
	})

	doc.Find("link[rel]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(sel.AttrOr("rel", "")), "canonical") {
			p.Canonical = strings.TrimSpace(sel.AttrOr("href", ""))
			return false
		}
		return true
	})

	text := doc.Find("body").Clone()
	text.Find("script, style, noscript, template").Remove()
	p.WordCount = len(strings.Fields(text.Text()))

	return p, nil
}

// Secure reports whether the page was served over HTTPS.
func (p *Page) Secure() bool {
	return p.secure
}

// HasRobotsDirective reports whether the robots meta tag carries directive.
func (p *Page) HasRobotsDirective(directive string) bool {
	want := cases.Fold().String(directive)
	for _, d := range p.Robots {
		if d == want {
			return true
		}
	}
	return false
}

// Summary returns the report summary of the page.
func (p *Page) Summary(findings int) model.PageSummary {
	return model.PageSummary{
		URL:          p.URL,
		Title:        p.Title,
		Description:  p.Description,
		Canonical:    p.Canonical,
		WordCount:    p.WordCount,
		FindingCount: findings,
	}
}

// directives splits a robots meta value into case-folded directives.
func directives(content string) []string {
	folded := cases.Fold().String(content)
	fields := strings.FieldsFunc(folded, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
