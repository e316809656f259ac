package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/darklens/internal/cache"
	"github.com/ppiankov/darklens/internal/model"
	"github.com/ppiankov/darklens/internal/util"
)

func testConfig(endpoint string) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Capture.Endpoint = endpoint
	cfg.Capture.RequestsPerSecond = 0 // unlimited
	return cfg
}

func newURLAcquirer(cfg *model.Config, deps Deps) *Acquirer {
	capturer := NewThumIOCapturer(cfg.Capture.Endpoint, cfg.Capture.UserAgent, nil)
	if deps.Online == nil {
		deps.Online = func(context.Context) bool { return true }
	}
	return NewAcquirer(cfg, capturer, deps)
}

// countingCapturer records calls without touching the network
type countingCapturer struct {
	calls atomic.Int32
}

func (c *countingCapturer) Name() string     { return "counting" }
func (c *countingCapturer) Endpoint() string { return "" }
func (c *countingCapturer) Capture(context.Context, CaptureRequest) (*Screenshot, error) {
	c.calls.Add(1)
	return &Screenshot{Data: pngBytes(1000), ContentType: "image/png"}, nil
}

func TestFromURL_InvalidURLMakesNoCall(t *testing.T) {
	capturer := &countingCapturer{}
	a := NewAcquirer(testConfig(""), capturer, Deps{})

	_, err := a.FromURL(context.Background(), "not a url")
	if !model.IsKind(err, model.ErrInvalidURL) {
		t.Fatalf("expected InvalidUrl, got %v", err)
	}
	if capturer.calls.Load() != 0 {
		t.Errorf("expected no capture call, got %d", capturer.calls.Load())
	}
}

func TestFromURL_Success(t *testing.T) {
	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(4096))
	}))
	defer server.Close()

	a := newURLAcquirer(testConfig(server.URL), Deps{})
	payload, err := a.FromURL(context.Background(), "example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/get/width/1200/crop/900/noanimate/https://example.com" {
		t.Errorf("unexpected capture path: %s", gotPath)
	}
	if !strings.HasPrefix(gotUA, "darklens/") {
		t.Errorf("unexpected user agent: %s", gotUA)
	}
	if payload.OriginURL != "https://example.com" {
		t.Errorf("expected normalized origin, got %s", payload.OriginURL)
	}
	if payload.MIMEType != "image/png" || len(payload.Binary) != 4096 {
		t.Errorf("unexpected payload: %s / %d bytes", payload.MIMEType, len(payload.Binary))
	}
	if !strings.HasPrefix(payload.DataURI, "data:image/png;base64,") {
		t.Errorf("unexpected data URI: %.30s", payload.DataURI)
	}
}

func TestFromURL_EmptyCapture(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(200))
	}))
	defer server.Close()

	a := newURLAcquirer(testConfig(server.URL), Deps{})
	_, err := a.FromURL(context.Background(), "example.com")
	if !model.IsKind(err, model.ErrEmptyCapture) {
		t.Fatalf("expected EmptyCapture, got %v", err)
	}
}

func TestFromURL_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := newURLAcquirer(testConfig(server.URL), Deps{})
	_, err := a.FromURL(context.Background(), "example.com")
	if !model.IsKind(err, model.ErrCaptureServiceError) {
		t.Fatalf("expected CaptureServiceError, got %v", err)
	}
}

func TestFromURL_NonImagePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>"+strings.Repeat("blocked ", 200)+"</body></html>")
	}))
	defer server.Close()

	a := newURLAcquirer(testConfig(server.URL), Deps{})
	_, err := a.FromURL(context.Background(), "example.com")
	if !model.IsKind(err, model.ErrCaptureServiceError) {
		t.Fatalf("expected CaptureServiceError, got %v", err)
	}
}

func TestFromURL_TimeoutCancelsRequest(t *testing.T) {
	cancelled := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
			t.Error("request was never cancelled")
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Capture.Timeout = 100 * time.Millisecond
	a := newURLAcquirer(cfg, Deps{})

	start := time.Now()
	_, err := a.FromURL(context.Background(), "slow.example")
	if !model.IsKind(err, model.ErrCaptureTimeout) {
		t.Fatalf("expected CaptureTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Error("server never observed the cancellation")
	}
}

func TestFromURL_OfflineVersusGenericFailure(t *testing.T) {
	// Closed server: connection refused
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	offline := newURLAcquirer(testConfig(endpoint), Deps{Online: func(context.Context) bool { return false }})
	_, err := offline.FromURL(context.Background(), "example.com")
	if !model.IsKind(err, model.ErrOffline) {
		t.Errorf("expected Offline, got %v", err)
	}

	online := newURLAcquirer(testConfig(endpoint), Deps{})
	_, err = online.FromURL(context.Background(), "shop.example.com")
	if !model.IsKind(err, model.ErrCaptureFailed) {
		t.Fatalf("expected CaptureFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "shop.example.com") {
		t.Errorf("expected host in error, got %v", err)
	}
}

func TestFromURL_CacheSkipsSecondCapture(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(append([]byte{0xFF, 0xD8, 0xFF}, make([]byte, 2000)...))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	a := newURLAcquirer(cfg, Deps{Cache: cache.NewMemoryCache(time.Minute, time.Minute)})

	first, err := a.FromURL(context.Background(), "example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.FromURL(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatal(err)
	}

	if hits.Load() != 1 {
		t.Errorf("expected one capture, got %d", hits.Load())
	}
	if second.MIMEType != "image/jpeg" || second.DataURI != first.DataURI {
		t.Error("cached payload differs from the original")
	}
}

func TestFromURL_RobotsDisallowed(t *testing.T) {
	var captures atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		captures.Add(1)
		_, _ = w.Write(pngBytes(1000))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	robots := util.NewRobotsChecker(cfg.Capture.UserAgent, server.Client())
	a := newURLAcquirer(cfg, Deps{Robots: robots})

	_, err := a.FromURL(context.Background(), server.URL+"/checkout")
	if !model.IsKind(err, model.ErrCaptureBlocked) {
		t.Fatalf("expected CaptureBlocked, got %v", err)
	}
	if captures.Load() != 0 {
		t.Error("capture must not run when robots.txt disallows the page")
	}
}

func TestNewCapturer(t *testing.T) {
	cfg := model.DefaultConfig().Capture

	c, err := NewCapturer(cfg, nil)
	if err != nil || c.Name() != "thumio" || c.Endpoint() != "https://image.thum.io" {
		t.Errorf("unexpected default capturer: %v (%v)", c, err)
	}

	cfg.Backend = "chromedp"
	c, err = NewCapturer(cfg, nil)
	if err != nil || c.Name() != "chromedp" || c.Endpoint() != "" {
		t.Errorf("unexpected chromedp capturer: %v (%v)", c, err)
	}

	cfg.Backend = "pixelpusher"
	if _, err := NewCapturer(cfg, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestThumIOCapturer_RequestURL(t *testing.T) {
	c := NewThumIOCapturer("https://image.thum.io/", "", nil)
	got := c.RequestURL(CaptureRequest{URL: "https://example.com", Width: 1200, CropHeight: 900, NoAnimate: true})
	want := "https://image.thum.io/get/width/1200/crop/900/noanimate/https://example.com"
	if got != want {
		t.Errorf("RequestURL() = %s, want %s", got, want)
	}

	animated := c.RequestURL(CaptureRequest{URL: "https://example.com", Width: 800, CropHeight: 600})
	if strings.Contains(animated, "noanimate") {
		t.Errorf("unexpected noanimate flag: %s", animated)
	}
}

func TestFromURL_HangingRobotsBoundedByCaptureTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig("")
	cfg.Capture.Timeout = 100 * time.Millisecond
	capturer := &countingCapturer{}
	a := NewAcquirer(cfg, capturer, Deps{
		Robots: util.NewRobotsChecker(cfg.Capture.UserAgent, server.Client()),
		Online: func(context.Context) bool { return true },
	})

	start := time.Now()
	payload, err := a.FromURL(context.Background(), server.URL+"/pricing")
	if err != nil {
		t.Fatalf("unreachable robots.txt should allow the capture, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("robots preflight took %v", elapsed)
	}
	if capturer.calls.Load() != 1 {
		t.Errorf("expected one capture, got %d", capturer.calls.Load())
	}
	if payload.OriginURL != server.URL+"/pricing" {
		t.Errorf("unexpected origin %q", payload.OriginURL)
	}
}
