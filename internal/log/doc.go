// Package log provides sanitizing structured logging built on log/slog.
//
// Users may configure extra request headers (for example an API gateway key
// or proxy credentials) and base URLs with embedded credentials. The
// SecureHandler masks such values before they reach the output:
//   - well-known credential keys (Authorization, Cookie, X-Api-Key, token, ...)
//   - credential-shaped values (bearer and basic tokens, JWTs, private keys)
//   - passwords and credential query parameters inside URLs
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, false)
//	logger.Debug("request headers", "X-Api-Key", key) // logged as ***REDACTED***
//	slog.SetDefault(logger)
package log
