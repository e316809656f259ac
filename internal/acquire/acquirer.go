package acquire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/darklens/internal/cache"
	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
	"github.com/ppiankov/darklens/internal/ratelimit"
	"github.com/ppiankov/darklens/internal/util"
)

// Acquirer implements both acquisition paths
type Acquirer struct {
	capturer  Capturer
	capture   model.CaptureConfig
	maxUpload int64

	limiter  *ratelimit.Limiter
	cache    cache.Cache // nil disables capture caching
	cacheTTL time.Duration
	robots   *util.RobotsChecker // nil skips the robots.txt preflight
	online   OnlineFunc
	logger   logging.Logger
}

// Deps are the optional collaborators of an Acquirer
type Deps struct {
	Cache   cache.Cache
	Robots  *util.RobotsChecker
	Online  OnlineFunc
	Limiter *ratelimit.Limiter
	Logger  logging.Logger
}

// NewAcquirer creates an Acquirer. Zero-valued config fields take defaults.
func NewAcquirer(cfg *model.Config, capturer Capturer, deps Deps) *Acquirer {
	capture := cfg.Capture
	if capture.Width <= 0 {
		capture.Width = model.DefaultCaptureWidth
	}
	if capture.CropHeight <= 0 {
		capture.CropHeight = model.DefaultCaptureHeight
	}
	if capture.Timeout <= 0 {
		capture.Timeout = model.DefaultCaptureTimeout
	}
	if capture.MinBytes <= 0 {
		capture.MinBytes = model.DefaultMinCaptureBytes
	}

	maxUpload := cfg.Upload.MaxBytes
	if maxUpload <= 0 {
		maxUpload = model.DefaultMaxUploadBytes
	}

	a := &Acquirer{
		capturer:  capturer,
		capture:   capture,
		maxUpload: maxUpload,
		limiter:   deps.Limiter,
		cache:     deps.Cache,
		cacheTTL:  cfg.Cache.MemoryTTL,
		robots:    deps.Robots,
		online:    deps.Online,
		logger:    deps.Logger,
	}
	if a.limiter == nil {
		a.limiter = ratelimit.NewLimiter(capture.RequestsPerSecond, capture.Burst)
	}
	if a.online == nil {
		a.online = InterfacesOnline
	}
	if a.logger == nil {
		a.logger = logging.Nop{}
	}
	return a
}

// FromURL normalizes rawInput, captures it and returns the screenshot payload
// with OriginURL set to the normalized input.
func (a *Acquirer) FromURL(ctx context.Context, rawInput string) (*ImagePayload, error) {
	normalized, err := NormalizeURL(rawInput)
	if err != nil {
		return nil, err
	}
	target, err := captureTarget(normalized)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidURL, rawInput, err)
	}
	host := hostOf(normalized)

	if a.capturer == nil {
		return nil, model.NewError(model.ErrCaptureFailed, host, errors.New("no capture backend configured"))
	}

	cacheKey := cache.Key("capture", a.capturer.Name()+"|"+target)
	if payload, ok := a.cached(cacheKey, normalized); ok {
		a.logger.Debug("capture cache hit", logging.F("url", normalized))
		return payload, nil
	}

	if err := a.preflight(ctx, target, host, normalized); err != nil {
		return nil, err
	}

	shot, err := a.captureWithDeadline(ctx, target)
	if err != nil {
		return nil, a.classify(ctx, err, host)
	}

	if len(shot.Data) < a.capture.MinBytes {
		return nil, model.NewError(model.ErrEmptyCapture, host, fmt.Errorf("%d bytes is below the %d byte minimum", len(shot.Data), a.capture.MinBytes))
	}

	mimeType, ok := imageType(shot.ContentType)
	if !ok {
		mimeType, ok = imageType(http.DetectContentType(shot.Data))
	}
	if !ok {
		return nil, model.NewError(model.ErrCaptureServiceError, host, fmt.Errorf("non-image payload (%s)", shot.ContentType))
	}

	a.logger.Info("viewport captured",
		logging.F("url", normalized),
		logging.F("backend", a.capturer.Name()),
		logging.F("bytes", len(shot.Data)))

	a.store(cacheKey, mimeType, shot.Data)
	return newPayload(shot.Data, mimeType, normalized), nil
}

// preflight runs the robots.txt check and waits for a rate-limit slot. Both
// are bounded by the capture timeout so a hanging robots.txt cannot stall a scan.
func (a *Acquirer) preflight(ctx context.Context, target, host, normalized string) error {
	preCtx, cancel := context.WithTimeout(ctx, a.capture.Timeout)
	defer cancel()

	if a.robots != nil {
		allowed, err := a.robots.Allowed(preCtx, target)
		if err != nil {
			a.logger.Warn("robots.txt check failed, continuing", logging.F("url", normalized), logging.Err(err))
		}
		if !allowed {
			return model.NewError(model.ErrCaptureBlocked, host, errors.New("disallowed by robots.txt"))
		}
	}

	rateKey := a.capturer.Endpoint()
	if rateKey == "" {
		rateKey = target
	}
	if err := a.limiter.Wait(preCtx, rateKey); err != nil {
		// The parent is still live, so the wait outran the capture timeout
		if ctx.Err() == nil {
			return model.NewError(model.ErrCaptureTimeout, host, fmt.Errorf("rate limit: %w", err))
		}
		return model.NewError(model.ErrCaptureFailed, host, fmt.Errorf("rate limit: %w", err))
	}
	return nil
}

// captureWithDeadline runs one capture under the configured timeout. The
// deferred cancel releases the request on every path; calling it after the
// capture finished is a no-op.
func (a *Acquirer) captureWithDeadline(ctx context.Context, target string) (*Screenshot, error) {
	captureCtx, cancel := context.WithTimeout(ctx, a.capture.Timeout)
	defer cancel()

	shot, err := a.capturer.Capture(captureCtx, CaptureRequest{
		URL:        target,
		Width:      a.capture.Width,
		CropHeight: a.capture.CropHeight,
		NoAnimate:  true,
	})
	if err != nil {
		// Only a failed capture consults the deadline, so a response that
		// raced the timer is never reported twice
		if errors.Is(captureCtx.Err(), context.DeadlineExceeded) {
			return nil, model.NewError(model.ErrCaptureTimeout, "", fmt.Errorf("no response within %s: %w", a.capture.Timeout, err))
		}
		return nil, err
	}
	return shot, nil
}

// classify maps a capture failure to its error kind
func (a *Acquirer) classify(ctx context.Context, err error, host string) error {
	var scanErr *model.ScanError
	if errors.As(err, &scanErr) {
		if scanErr.Detail == "" {
			scanErr.Detail = host
		}
		return scanErr
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return model.NewError(model.ErrCaptureServiceError, host, err)
	}

	// The offline check is independent of how the request failed
	if !a.online(ctx) {
		return model.NewError(model.ErrOffline, host, err)
	}
	return model.NewError(model.ErrCaptureFailed, host, err)
}

type cachedShot struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

func (a *Acquirer) cached(key, normalized string) (*ImagePayload, bool) {
	if a.cache == nil {
		return nil, false
	}
	raw, ok := a.cache.Get(key)
	if !ok {
		return nil, false
	}
	var entry cachedShot
	if err := json.Unmarshal(raw, &entry); err != nil || len(entry.Data) < a.capture.MinBytes {
		_ = a.cache.Delete(key)
		return nil, false
	}
	return newPayload(entry.Data, entry.MIMEType, normalized), true
}

func (a *Acquirer) store(key, mimeType string, data []byte) {
	if a.cache == nil {
		return
	}
	raw, err := json.Marshal(cachedShot{MIMEType: mimeType, Data: data})
	if err != nil {
		return
	}
	if err := a.cache.Set(key, raw, a.cacheTTL); err != nil {
		a.logger.Warn("capture cache write failed", logging.Err(err))
	}
}

func hostOf(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	return u.Hostname()
}
