// Package session runs one dark-pattern audit at a time: acquire the image,
// analyze it, and hand the finished session to a presenter.
package session

import (
	"context"
	"sync"

	"github.com/ppiankov/darklens/internal/acquire"
	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
)

// Acquirer produces image payloads from uploads and live URLs
type Acquirer interface {
	FromUpload(file acquire.File) (*acquire.ImagePayload, error)
	FromURL(ctx context.Context, rawInput string) (*acquire.ImagePayload, error)
}

// Analyzer turns an image payload into a validated result
type Analyzer interface {
	Analyze(ctx context.Context, payload *acquire.ImagePayload) (*model.AnalysisResult, error)
}

// Presenter receives completed sessions. The session is a private copy;
// reset returns the controller to idle.
type Presenter interface {
	Present(session model.ScanSession, reset func())
}

// PresenterFunc adapts a function to Presenter
type PresenterFunc func(session model.ScanSession, reset func())

// Present calls f
func (f PresenterFunc) Present(session model.ScanSession, reset func()) {
	f(session, reset)
}

// ProgressFunc observes phase labels
type ProgressFunc func(phase string)

// Controller owns the scan session state machine
type Controller struct {
	acquirer  Acquirer
	analyzer  Analyzer
	presenter Presenter
	progress  ProgressFunc
	logger    logging.Logger

	mu      sync.Mutex
	active  bool
	current *model.ScanSession
	phase   string
}

// Option configures a Controller
type Option func(*Controller)

// WithPresenter sets the presenter for completed sessions
func WithPresenter(p Presenter) Option {
	return func(c *Controller) { c.presenter = p }
}

// WithProgress sets a phase observer. It runs on the scanning goroutine.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Controller) { c.progress = fn }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a controller
func NewController(acquirer Acquirer, analyzer Analyzer, opts ...Option) *Controller {
	c := &Controller{
		acquirer: acquirer,
		analyzer: analyzer,
		logger:   logging.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartFromUpload scans an uploaded file. It returns the final session, which
// is in status complete or error; the error is the classified failure.
func (c *Controller) StartFromUpload(ctx context.Context, file acquire.File) (model.ScanSession, error) {
	s, err := c.begin()
	if err != nil {
		return model.ScanSession{}, err
	}
	defer c.end()

	log := c.logger.With(logging.F("session", s.ID), logging.F("source", "upload"))

	if err := c.enter(s, model.StatusUploading, PhaseProcessing); err != nil {
		return c.fail(s, log, err)
	}
	payload, err := c.acquirer.FromUpload(file)
	if err != nil {
		return c.fail(s, log, err)
	}

	return c.analyze(ctx, s, log, payload)
}

// StartFromURL captures rawInput and scans the screenshot
func (c *Controller) StartFromURL(ctx context.Context, rawInput string) (model.ScanSession, error) {
	s, err := c.begin()
	if err != nil {
		return model.ScanSession{}, err
	}
	defer c.end()

	log := c.logger.With(logging.F("session", s.ID), logging.F("source", "url"))

	if err := c.enter(s, model.StatusUploading, PhaseConnecting); err != nil {
		return c.fail(s, log, err)
	}
	c.setPhase(s, PhaseCapturing)
	payload, err := c.acquirer.FromURL(ctx, rawInput)
	if err != nil {
		return c.fail(s, log, err)
	}

	c.mu.Lock()
	err = s.SetSource(payload.OriginURL)
	c.mu.Unlock()
	if err != nil {
		return c.fail(s, log, err)
	}

	return c.analyze(ctx, s, log, payload)
}

// Reset discards the current session. Sessions already handed to a presenter
// are unaffected.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	c.phase = ""
}

// Phase returns the label of the running phase, or "" when idle
func (c *Controller) Phase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Current returns a copy of the current session
func (c *Controller) Current() (model.ScanSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return model.ScanSession{}, false
	}
	return c.current.Snapshot(), true
}

// Active reports whether a scan is in flight
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) analyze(ctx context.Context, s *model.ScanSession, log logging.Logger, payload *acquire.ImagePayload) (model.ScanSession, error) {
	c.mu.Lock()
	s.ImageURL = payload.DataURI
	c.mu.Unlock()

	if err := c.enter(s, model.StatusAnalyzing, PhaseDetecting); err != nil {
		return c.fail(s, log, err)
	}
	result, err := c.analyzer.Analyze(ctx, payload)
	if err != nil {
		return c.fail(s, log, err)
	}

	c.mu.Lock()
	err = s.Complete(result)
	snapshot := s.Snapshot()
	if c.current == s {
		c.phase = ""
	}
	c.mu.Unlock()
	if err != nil {
		return c.fail(s, log, err)
	}

	counts := result.CountBySeverity()
	log.Info("scan complete",
		logging.F("detections", len(result.Detections)),
		logging.F("high", counts[model.SeverityHigh]),
		logging.F("trust_score", result.OverallTrustScore))

	if c.presenter != nil {
		c.presenter.Present(snapshot, c.Reset)
	}
	return snapshot, nil
}

// begin claims the controller for one scan and installs a fresh session
func (c *Controller) begin() (*model.ScanSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return nil, model.NewError(model.ErrScanInProgress, "", nil)
	}
	c.active = true
	c.current = model.NewSession()
	return c.current, nil
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
}

// enter moves s to status and announces phase. The phase is not announced
// when the transition is rejected.
func (c *Controller) enter(s *model.ScanSession, status model.Status, phase string) error {
	c.mu.Lock()
	err := s.Transition(status)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.setPhase(s, phase)
	return nil
}

func (c *Controller) setPhase(s *model.ScanSession, phase string) {
	c.mu.Lock()
	if c.current == s {
		c.phase = phase
	}
	c.mu.Unlock()

	if c.progress != nil {
		c.progress(phase)
	}
}

func (c *Controller) fail(s *model.ScanSession, log logging.Logger, err error) (model.ScanSession, error) {
	msg := Message(err)

	c.mu.Lock()
	failErr := s.Fail(msg)
	snapshot := s.Snapshot()
	if c.current == s {
		c.phase = ""
	}
	c.mu.Unlock()

	if failErr != nil {
		log.Error("session not marked failed", logging.F("status", string(snapshot.Status)), logging.Err(failErr))
	}
	log.Warn("scan failed",
		logging.F("kind", string(model.KindOf(err))),
		logging.Err(err))
	return snapshot, err
}
