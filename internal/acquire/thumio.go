package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxCaptureBytes bounds how much of a capture response is read
const maxCaptureBytes = 20 << 20

// ThumIOCapturer requests screenshots from a thum.io-compatible HTTP service
type ThumIOCapturer struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewThumIOCapturer creates a capturer for endpoint (e.g. https://image.thum.io).
// Deadlines come from the request context, so client should carry no timeout of its own.
func NewThumIOCapturer(endpoint, userAgent string, client *http.Client) *ThumIOCapturer {
	if endpoint == "" {
		endpoint = "https://image.thum.io"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &ThumIOCapturer{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		userAgent:  userAgent,
		httpClient: client,
	}
}

// Name returns the backend name
func (c *ThumIOCapturer) Name() string {
	return "thumio"
}

// Endpoint returns the service base URL
func (c *ThumIOCapturer) Endpoint() string {
	return c.endpoint
}

// RequestURL builds the service URL for a capture, e.g.
// https://image.thum.io/get/width/1200/crop/900/noanimate/https://example.com
func (c *ThumIOCapturer) RequestURL(req CaptureRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/get/width/%d/crop/%d/", c.endpoint, req.Width, req.CropHeight)
	if req.NoAnimate {
		b.WriteString("noanimate/")
	}
	b.WriteString(req.URL)
	return b.String()
}

// Capture fetches the screenshot blob
func (c *ThumIOCapturer) Capture(ctx context.Context, req CaptureRequest) (*Screenshot, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	httpReq.Header.Set("Accept", "image/png,image/jpeg,image/webp,image/*;q=0.8")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptureBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Screenshot{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
