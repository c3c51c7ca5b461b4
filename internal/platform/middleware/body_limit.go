package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit returns middleware that rejects request bodies larger than the
// given size. Sizes use a short human form: a bare number is bytes, and K, M,
// and G suffixes scale by powers of 1024 ("512K", "1M"). Unparseable sizes
// fall back to 1M.
//
// Oversized requests receive 413 Request Entity Too Large, either up front
// from the declared Content-Length or mid-read when the declared length was
// absent or wrong.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > maxBytes {
				return errBodyTooLarge(maxBytes)
			}
			req.Body = &meteredBody{ReadCloser: req.Body, limit: maxBytes}
			return next(c)
		}
	}
}

// meteredBody counts bytes as the handler reads and fails the read that
// crosses the limit.
type meteredBody struct {
	io.ReadCloser
	limit int64
	read  int64
	over  bool
}

func (b *meteredBody) Read(p []byte) (int, error) {
	if b.over {
		return 0, errBodyTooLarge(b.limit)
	}

	// Read at most one byte past the limit so overflow is observable
	// without buffering the excess.
	if room := b.limit - b.read + 1; int64(len(p)) > room {
		p = p[:room]
	}

	n, err := b.ReadCloser.Read(p)
	b.read += int64(n)
	if b.read > b.limit {
		b.over = true
		return 0, errBodyTooLarge(b.limit)
	}
	return n, err
}

func errBodyTooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds the %d byte limit", limit))
}

var sizeSuffixes = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30},
	{"G", 1 << 30},
	{"MB", 1 << 20},
	{"M", 1 << 20},
	{"KB", 1 << 10},
	{"K", 1 << 10},
}

// parseLimit converts a size string such as "512K" or "10M" to bytes.
// Anything it cannot parse, including the empty string, becomes 1M.
func parseLimit(s string) int64 {
	const fallback = 1 << 20

	s = strings.ToUpper(strings.TrimSpace(s))
	factor := int64(1)
	for _, u := range sizeSuffixes {
		if strings.HasSuffix(s, u.suffix) {
			factor = u.factor
			s = strings.TrimSuffix(s, u.suffix)
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n * factor
}
