package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxHeaderBytes caps the size of a single request header value.
const maxHeaderBytes = 8 * 1024

var (
	// Classic SQL probe shapes. Matched values are logged, not blocked:
	// nothing in the service builds SQL from request values.
	sqlProbe = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	// Script payloads are rejected outright.
	scriptProbe = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// SanitizeWithLogger returns middleware that screens the request path,
// headers, and query string for injection payloads before routing. A request
// carrying a blocked pattern receives 400 Bad Request with the reason in the
// body; suspected SQL probes pass through with a warning log.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := c.Request().URL
			if err := screenPath(u.Path, u.RawPath); err != nil {
				return err
			}
			if err := screenHeaders(c.Request().Header); err != nil {
				return err
			}
			if err := screenQuery(c, logger); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// screenPath inspects both the decoded path and, when present, the raw
// encoded form, so percent-encoded traversal sequences are caught either way.
func screenPath(path, rawPath string) error {
	for _, p := range []string{path, rawPath} {
		if p == "" {
			continue
		}
		if hasTraversal(p) {
			return badRequest("path traversal sequence in request path")
		}
		if hasNullByte(p) {
			return badRequest("null byte in request path")
		}
	}
	return nil
}

func screenHeaders(h http.Header) error {
	for name, values := range h {
		for _, v := range values {
			if len(v) > maxHeaderBytes {
				return badRequest("header value exceeds size limit: " + name)
			}
			if strings.ContainsAny(v, "\r\n") {
				return badRequest("newline in header value: " + name)
			}
		}
	}
	return nil
}

func screenQuery(c echo.Context, logger zerolog.Logger) error {
	for key, values := range c.Request().URL.Query() {
		if hasNullByte(key) {
			return badRequest("null byte in query parameter")
		}
		for _, v := range values {
			if hasNullByte(v) {
				return badRequest("null byte in query parameter")
			}
			if sqlProbe.MatchString(v) {
				logger.Warn().
					Str("param", key).
					Str("path", c.Request().URL.Path).
					Str("remote_ip", c.RealIP()).
					Msg("possible SQL injection in query parameter")
			}
			if scriptProbe.MatchString(v) || scriptProbe.MatchString(key) {
				return badRequest("script payload in query parameter")
			}
		}
	}
	return nil
}

// hasTraversal matches dot-dot sequences in plain, single-encoded, and
// double-encoded forms.
func hasTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func hasNullByte(s string) bool {
	return strings.ContainsRune(s, 0) || strings.Contains(strings.ToLower(s), "%00")
}

func badRequest(reason string) error {
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}

// SanitizeString strips null bytes and non-printing control characters from a
// free-text value, keeping tabs and line breaks, and trims surrounding
// whitespace. Handlers run clinician-entered text such as chat messages and
// rejection reasons through it before the text reaches a session.
func SanitizeString(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}
