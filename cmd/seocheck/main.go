// Package main provides the entry point for the seocheck CLI.
//
// seocheck crawls a website and reports SEO problems together with the
// state of its sitemap.xml, robots.txt and TLS configuration.
//
// Usage:
//
//	seocheck scan <url>
//	seocheck analyze <url>...
//	seocheck history <url>
//	seocheck serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
