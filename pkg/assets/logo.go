// Package assets fetches branding assets used by the report renderer. The
// stage is best-effort: a missing or malformed logo degrades the report to
// its text-only header instead of failing the render.
package assets

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// Decoders for the formats a logo URL may serve.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/sirupsen/logrus"
)

// maxLogoBytes caps how much of a logo response is read. Anything larger
// is not a logo.
const maxLogoBytes = 5 << 20

// DefaultTimeout bounds a logo fetch so a slow asset host cannot stall
// report generation.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of an asset fetch. Exactly one of Image or
// Degraded is meaningful: a degraded result carries a reason and a nil
// image, and the caller renders without the asset.
type Result struct {
	Image    image.Image
	Degraded bool
	Reason   string
}

// Ok reports whether the fetch produced a usable image.
func (r Result) Ok() bool {
	return !r.Degraded && r.Image != nil
}

func degraded(reason string) Result {
	return Result{Degraded: true, Reason: reason}
}

// Fetcher retrieves logos over HTTP with a bounded timeout.
type Fetcher struct {
	client *http.Client
	log    *logrus.Logger
}

// NewFetcher creates a Fetcher. A zero timeout falls back to
// DefaultTimeout; a nil logger falls back to the logrus standard logger.
func NewFetcher(timeout time.Duration, log *logrus.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Logo fetches and decodes the logo at url. It never returns an error:
// every failure mode is absorbed into a degraded Result and logged, and
// the report renders without the logo.
func (f *Fetcher) Logo(ctx context.Context, url string) Result {
	if url == "" {
		return degraded("no logo URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return f.degradedf(url, "invalid logo URL: %v", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.degradedf(url, "logo fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return f.degradedf(url, "logo fetch returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxLogoBytes))
	if err != nil {
		return f.degradedf(url, "logo decode failed: %v", err)
	}

	return Result{Image: img}
}

func (f *Fetcher) degradedf(url, format string, args ...interface{}) Result {
	reason := fmt.Sprintf(format, args...)
	f.log.WithFields(logrus.Fields{
		"url":    url,
		"reason": reason,
	}).Warn("rendering without logo")
	return degraded(reason)
}
