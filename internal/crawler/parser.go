package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts links and crawl directives from HTML content.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL
}

// ParseResult contains the information the spider needs from a page.
type ParseResult struct {
	// Title is the page title from <title> tag.
	Title string

	// Links contains all discovered URLs (href attributes), resolved.
	Links []string

	// InternalLinks are links on the same host as the page.
	InternalLinks []string

	// ExternalLinks are links to other hosts.
	ExternalLinks []string

	// MetaTags maps meta names to their content.
	MetaTags map[string]string

	// NoFollow is true when a robots meta tag forbids following links.
	NoFollow bool
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts links and meta directives.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
		MetaTags:      make(map[string]string),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if robots, ok := result.MetaTags["robots"]; ok && hasDirective(robots, "nofollow") {
		result.NoFollow = true
	}

	return result, nil
}

func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "base":
		// <base href> changes how every later relative link resolves.
		if href := getAttr(n, "href"); href != "" {
			if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
				p.baseURL = p.baseURL.ResolveReference(u)
			}
		}

	case "a", "area":
		if hasDirective(getAttr(n, "rel"), "nofollow") {
			return
		}
		if href := getAttr(n, "href"); href != "" {
			resolved := p.resolveURL(href)
			if resolved != "" {
				result.Links = append(result.Links, resolved)
				p.classifyLink(resolved, result)
			}
		}

	case "meta":
		name := strings.ToLower(getAttr(n, "name"))
		content := getAttr(n, "content")
		if name != "" && content != "" {
			result.MetaTags[name] = content
		}
	}
}

// resolveURL resolves a relative URL against the base URL.
// Non-navigable schemes and bare fragments resolve to "".
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// classifyLink sorts a resolved link into internal or external.
func (p *Parser) classifyLink(link string, result *ParseResult) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}
	if strings.EqualFold(u.Host, p.baseURL.Host) {
		result.InternalLinks = append(result.InternalLinks, link)
		return
	}
	result.ExternalLinks = append(result.ExternalLinks, link)
}

// hasDirective reports whether a comma or space separated list contains
// directive, ignoring case.
func hasDirective(list, directive string) bool {
	for _, field := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' }) {
		if strings.EqualFold(strings.TrimSpace(field), directive) {
			return true
		}
	}
	return false
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
