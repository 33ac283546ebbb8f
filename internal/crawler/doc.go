// Package crawler discovers the pages of a single site and reports what
// happens to every URL as a stream of events.
//
// # Architecture
//
// A Crawler runs until the site is exhausted, the page limit is reached or
// its context is cancelled, calling emit for every outcome: a fetched page,
// a 404, a timeout, a transport error, a URL disallowed by robots.txt, and
// finally EventDone. Consumers such as the crawl event router decide what
// each event means; the crawler itself never fails because of a single URL.
//
// Spider is the default Crawler. It walks the site breadth first, one depth
// level at a time, with a bounded number of concurrent requests per level.
//
// # Politeness
//
//   - Honors robots.txt for the configured user agent (configurable)
//   - Spaces requests by the configured crawl delay
//   - Limits concurrent requests and the total number of pages
//   - Stays on the seed host
//
// # Usage
//
//	spider := crawler.NewSpider(seed, http.DefaultClient, crawler.WithMaxDepth(2))
//	err := spider.Run(ctx, func(ev crawler.Event) {
//		fmt.Println(ev.Kind, ev.URL)
//	})
package crawler
