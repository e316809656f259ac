package acquire

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/darklens/internal/model"
)

// CaptureRequest describes a fixed-size viewport capture
type CaptureRequest struct {
	URL        string
	Width      int
	CropHeight int
	NoAnimate  bool
}

// Screenshot is the raw image returned by a capture backend
type Screenshot struct {
	Data        []byte
	ContentType string
}

// Capturer turns a URL into a screenshot
type Capturer interface {
	// Name returns the backend name
	Name() string

	// Endpoint returns the capture service base URL, or "" for local backends
	Endpoint() string

	// Capture takes the screenshot. Implementations must stop work when ctx is done.
	Capture(ctx context.Context, req CaptureRequest) (*Screenshot, error)
}

// StatusError reports a non-success HTTP status from a capture service
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.StatusCode, e.Status)
}

// NewCapturer creates the capture backend named in cfg
func NewCapturer(cfg model.CaptureConfig, client *http.Client) (Capturer, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "thumio", "thum.io":
		return NewThumIOCapturer(cfg.Endpoint, cfg.UserAgent, client), nil
	case "chromedp", "chrome":
		return NewChromeCapturer(cfg.UserAgent), nil
	default:
		return nil, fmt.Errorf("unknown capture backend: %s (supported: thumio, chromedp)", cfg.Backend)
	}
}
