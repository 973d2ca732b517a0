package artifact

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"forensics/internal/platform/logger"
	"forensics/pkg/requestcontext"
)

// collectorScript runs inside the page and returns a RawPage as JSON.
//
//go:embed collector.js
var collectorScript string

// BrowserCollector loads the page in headless Chrome and runs the extraction
// script in the page context, which exposes cookies and web storage that a
// plain HTTP fetch cannot see.
type BrowserCollector struct {
	allocOpts []chromedp.ExecAllocatorOption
	logger    *slog.Logger
}

type BrowserOption func(*BrowserCollector)

func WithBrowserLogger(l *slog.Logger) BrowserOption {
	return func(c *BrowserCollector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithExecPath points the allocator at a specific Chrome binary.
func WithExecPath(path string) BrowserOption {
	return func(c *BrowserCollector) {
		if path != "" {
			c.allocOpts = append(c.allocOpts, chromedp.ExecPath(path))
		}
	}
}

func NewBrowserCollector(opts ...BrowserOption) *BrowserCollector {
	c := &BrowserCollector{
		allocOpts: append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.DisableGPU,
			chromedp.Flag("disable-logging", true),
		),
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *BrowserCollector) Collect(ctx context.Context, req Request, reply Replier) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocOpts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		c.logger.Debug(fmt.Sprintf(format, args...), "request_id", req.ID)
	}))
	defer cancelTab()

	var raw RawPage
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(req.URL),
		chromedp.Evaluate(collectorScript, &raw),
	); err != nil {
		return fmt.Errorf("run page collector: %w", err)
	}
	if raw.URL == "" {
		raw.URL = req.URL
	}

	reply.Deliver(Build(raw, req.ID, requestcontext.Now(ctx)))
	return nil
}
