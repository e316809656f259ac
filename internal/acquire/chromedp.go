package acquire

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// ChromeCapturer takes screenshots with a local headless Chrome
type ChromeCapturer struct {
	userAgent string
	execPath  string
}

// NewChromeCapturer creates a capturer that launches Chrome per capture
func NewChromeCapturer(userAgent string) *ChromeCapturer {
	return &ChromeCapturer{userAgent: userAgent}
}

// WithExecPath points the capturer at a specific Chrome binary
func (c *ChromeCapturer) WithExecPath(path string) *ChromeCapturer {
	c.execPath = path
	return c
}

// Name returns the backend name
func (c *ChromeCapturer) Name() string {
	return "chromedp"
}

// Endpoint is empty: captures run locally
func (c *ChromeCapturer) Endpoint() string {
	return ""
}

// Capture navigates to req.URL and grabs the viewport as PNG. Cancelling ctx
// tears down the browser.
func (c *ChromeCapturer) Capture(ctx context.Context, req CaptureRequest) (*Screenshot, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(req.Width, req.CropHeight),
	)
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	var buf []byte
	err := chromedp.Run(taskCtx,
		chromedp.EmulateViewport(int64(req.Width), int64(req.CropHeight)),
		reducedMotion(req.NoAnimate),
		chromedp.Navigate(req.URL),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome capture: %w", err)
	}

	return &Screenshot{Data: buf, ContentType: "image/png"}, nil
}

// reducedMotion asks the page to skip animations via prefers-reduced-motion
func reducedMotion(enabled bool) chromedp.Action {
	if !enabled {
		return chromedp.ActionFunc(func(context.Context) error { return nil })
	}
	return emulation.SetEmulatedMedia().WithFeatures([]*emulation.MediaFeature{
		{Name: "prefers-reduced-motion", Value: "reduce"},
	})
}
