// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler wraps any slog.Handler and sanitizes attributes before
// they are written:
//   - values under sensitive keys (cookie, authorization, token, ...) are masked
//   - values that look like secrets (JWTs, bearer tokens, AWS keys) are masked
//   - URLs keep their scheme, host and path, but passwords in the userinfo
//     and sensitive query parameters are masked
//
// Crawled sites regularly carry session tokens and signed parameters in their
// links, so every URL that reaches a log line goes through the handler.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("fetched page",
//	    "url", "https://example.com/a?session=abc", // logged as session=***REDACTED***
//	)
package log
