// Package render loads pages in a headless Chrome for sites that need
// JavaScript before their content is readable.
package render

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// Defaults for NewChrome.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Renderer returns the outer HTML of a page after it has loaded.
type Renderer interface {
	HTML(ctx context.Context, pageURL string) (string, error)
}

// Chrome renders pages with a fresh headless browser per call.
type Chrome struct {
	Timeout   time.Duration
	UserAgent string
	Proxy     string
}

// NewChrome returns a Chrome renderer with defaults applied.
func NewChrome(timeout time.Duration, proxy string) *Chrome {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Chrome{Timeout: timeout, UserAgent: DefaultUserAgent, Proxy: proxy}
}

// HTML navigates to pageURL and returns the document once the body is ready.
func (c *Chrome) HTML(ctx context.Context, pageURL string) (string, error) {
	if _, err := ParseURL(pageURL); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(c.UserAgent),
	)
	if c.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(c.Proxy))
	}
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New(errors.CodeTimeout, "page render timed out", err).
				WithContext("url", pageURL).
				WithRecoverable(true)
		}
		return "", errors.New(errors.CodeToolFailure, "page render failed", err).
			WithContext("url", pageURL).
			WithRecoverable(true)
	}
	return html, nil
}

// ParseURL accepts absolute http and https URLs only.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New(errors.CodeInvalidInput, "invalid url", err).WithContext("url", raw)
	}
	return u, nil
}
