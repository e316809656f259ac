package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/darklens/internal/acquire"
	"github.com/ppiankov/darklens/internal/llm"
	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
)

const twoDetections = `{
  "overallTrustScore": 40,
  "darkPatternRiskScore": 65,
  "regulatoryRisks": ["EU DSA Art. 25"],
  "executiveSummary": "Two manipulative patterns on the pricing page.",
  "detections": [
    {
      "patternName": "Confirmshaming",
      "description": "Decline link reads 'No thanks, I like paying more'.",
      "severity": "High",
      "confidence": 91,
      "boundingBox": [700, 300, 760, 700],
      "psychology": {"bias": "Loss aversion", "effect": "Guilt-driven opt-in", "emotion": "Shame"},
      "redesign": {"suggestion": "Use a neutral 'No thanks'", "principle": "Respect", "impact": "Fewer regretful sign-ups"}
    },
    {
      "patternName": "Preselection",
      "description": "Newsletter checkbox is ticked by default.",
      "severity": "Low",
      "confidence": 60,
      "boundingBox": [800, 100, 830, 400],
      "psychology": {"bias": "Default effect", "effect": "Passive consent", "emotion": "Indifference"},
      "redesign": {"suggestion": "Leave the box unticked", "principle": "Informed consent", "impact": "Valid consent records"}
    }
  ]
}`

func pngFile(size int) acquire.File {
	data := make([]byte, size)
	copy(data, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	return acquire.File{
		Name:        "pricing.png",
		ContentType: "image/png",
		Size:        int64(size),
		Reader:      bytes.NewReader(data),
	}
}

// stubProvider answers every audit with a fixed reply
type stubProvider struct {
	content string
	calls   int
}

func (p *stubProvider) Name() string                     { return "stub" }
func (p *stubProvider) IsAvailable(context.Context) bool { return true }
func (p *stubProvider) Analyze(context.Context, llm.AnalyzeRequest) (*llm.AnalyzeResponse, error) {
	p.calls++
	return &llm.AnalyzeResponse{Content: p.content, Model: "stub-1"}, nil
}

type fakeAcquirer struct {
	payload *acquire.ImagePayload
	err     error
}

func (f *fakeAcquirer) FromUpload(acquire.File) (*acquire.ImagePayload, error) {
	return f.payload, f.err
}

func (f *fakeAcquirer) FromURL(_ context.Context, raw string) (*acquire.ImagePayload, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.payload
	p.OriginURL = "https://" + strings.TrimPrefix(raw, "https://")
	return &p, nil
}

type fakeAnalyzer struct {
	result  *model.AnalysisResult
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, _ *acquire.ImagePayload) (*model.AnalysisResult, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func samplePayload() *acquire.ImagePayload {
	return &acquire.ImagePayload{
		Binary:   []byte("png"),
		MIMEType: "image/png",
		DataURI:  "data:image/png;base64,cG5n",
	}
}

func sampleResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		OverallTrustScore:    90,
		DarkPatternRiskScore: 5,
		RegulatoryRisks:      []string{},
		ExecutiveSummary:     "Clean checkout.",
	}
}

type recordingPresenter struct {
	sessions []model.ScanSession
	resets   []func()
}

func (r *recordingPresenter) Present(s model.ScanSession, reset func()) {
	r.sessions = append(r.sessions, s)
	r.resets = append(r.resets, reset)
}

func TestStartFromUpload_EndToEnd(t *testing.T) {
	provider := &stubProvider{content: twoDetections}
	acquirer := acquire.NewAcquirer(model.DefaultConfig(), nil, acquire.Deps{})
	analyzer := llm.NewAnalyzerWithProvider(provider, nil)
	presenter := &recordingPresenter{}
	var phases []string

	c := NewController(acquirer, analyzer,
		WithPresenter(presenter),
		WithProgress(func(p string) { phases = append(phases, p) }))

	s, err := c.StartFromUpload(context.Background(), pngFile(2*1024*1024))
	require.NoError(t, err)

	assert.Equal(t, model.StatusComplete, s.Status)
	require.NotNil(t, s.Result)
	require.Len(t, s.Result.Detections, 2)
	assert.NotEqual(t, s.Result.Detections[0].ID, s.Result.Detections[1].ID)
	assert.NotEmpty(t, s.Result.Detections[0].ID)
	assert.Equal(t, model.SeverityHigh, s.Result.Detections[0].Severity)
	assert.Equal(t, model.SeverityLow, s.Result.Detections[1].Severity)
	assert.Equal(t, 40.0, s.Result.OverallTrustScore)
	assert.True(t, strings.HasPrefix(s.ImageURL, "data:image/png;base64,"))
	assert.Empty(t, s.SourceURL)
	assert.NotEmpty(t, s.ID)

	assert.Equal(t, []string{PhaseProcessing, PhaseDetecting}, phases)
	assert.Equal(t, 1, provider.calls)

	require.Len(t, presenter.sessions, 1)
	assert.Equal(t, s.ID, presenter.sessions[0].ID)
	assert.Equal(t, "", c.Phase())
	assert.False(t, c.Active())
}

func TestStartFromURL_RecordsSource(t *testing.T) {
	var phases []string
	c := NewController(&fakeAcquirer{payload: samplePayload()}, &fakeAnalyzer{result: sampleResult()},
		WithProgress(func(p string) { phases = append(phases, p) }))

	s, err := c.StartFromURL(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, model.StatusComplete, s.Status)
	assert.Equal(t, "https://example.com", s.SourceURL)
	assert.Equal(t, "data:image/png;base64,cG5n", s.ImageURL)
	assert.Equal(t, []string{PhaseConnecting, PhaseCapturing, PhaseDetecting}, phases)
}

func TestStartFromUpload_AcquisitionFailure(t *testing.T) {
	presenter := &recordingPresenter{}
	acquirer := acquire.NewAcquirer(model.DefaultConfig(), nil, acquire.Deps{})
	analyzer := &fakeAnalyzer{result: sampleResult()}
	c := NewController(acquirer, analyzer, WithPresenter(presenter))

	s, err := c.StartFromUpload(context.Background(), pngFile(6*1000*1000))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrFileTooLarge))
	assert.Equal(t, model.StatusError, s.Status)
	assert.Nil(t, s.Result)
	assert.Equal(t, "File size must be less than 5MB.", s.Error)
	assert.Empty(t, presenter.sessions, "failed sessions are never presented")

	// The controller stays usable after a failure
	next, err := c.StartFromUpload(context.Background(), pngFile(1024))
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, next.Status)
	assert.NotEqual(t, s.ID, next.ID)
	assert.Len(t, presenter.sessions, 1)
}

func TestStartFromURL_CaptureFailure(t *testing.T) {
	acq := &fakeAcquirer{err: model.NewError(model.ErrEmptyCapture, "example.com", errors.New("200 bytes"))}
	c := NewController(acq, &fakeAnalyzer{result: sampleResult()})

	s, err := c.StartFromURL(context.Background(), "example.com")
	require.Error(t, err)
	assert.Equal(t, model.StatusError, s.Status)
	assert.Empty(t, s.SourceURL)
	assert.Contains(t, s.Error, "uploading a screenshot manually")
}

func TestStartFromUpload_AnalysisFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: model.NewError(model.ErrMalformedResponse, "", errors.New("bad json"))}
	c := NewController(&fakeAcquirer{payload: samplePayload()}, analyzer)

	s, err := c.StartFromUpload(context.Background(), pngFile(10))
	require.Error(t, err)
	assert.Equal(t, model.StatusError, s.Status)
	assert.Nil(t, s.Result)
	assert.Equal(t, "data:image/png;base64,cG5n", s.ImageURL)
	assert.Equal(t, "Analysis failed. The AI could not process this image. Please try again.", s.Error)
}

func TestStart_RejectsConcurrentScan(t *testing.T) {
	analyzer := &fakeAnalyzer{
		result:  sampleResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewController(&fakeAcquirer{payload: samplePayload()}, analyzer)

	var wg sync.WaitGroup
	wg.Add(1)
	var first model.ScanSession
	var firstErr error
	go func() {
		defer wg.Done()
		first, firstErr = c.StartFromUpload(context.Background(), pngFile(10))
	}()

	select {
	case <-analyzer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first scan never reached analysis")
	}

	assert.True(t, c.Active())
	assert.Equal(t, PhaseDetecting, c.Phase())
	current, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, model.StatusAnalyzing, current.Status)

	second, err := c.StartFromURL(context.Background(), "example.com")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrScanInProgress))
	assert.Empty(t, second.ID, "a rejected scan creates no session")

	close(analyzer.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, model.StatusComplete, first.Status)
	assert.Equal(t, current.ID, first.ID)
}

func TestReset_DoesNotTouchPresentedSession(t *testing.T) {
	presenter := &recordingPresenter{}
	c := NewController(&fakeAcquirer{payload: samplePayload()}, &fakeAnalyzer{result: sampleResult()},
		WithPresenter(presenter))

	_, err := c.StartFromUpload(context.Background(), pngFile(10))
	require.NoError(t, err)

	current, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, model.StatusComplete, current.Status)

	require.Len(t, presenter.resets, 1)
	presenter.resets[0]()

	_, ok = c.Current()
	assert.False(t, ok)
	assert.Equal(t, "", c.Phase())

	presented := presenter.sessions[0]
	assert.Equal(t, model.StatusComplete, presented.Status)
	require.NotNil(t, presented.Result)
	assert.Equal(t, "Clean checkout.", presented.Result.ExecutiveSummary)
}

func TestPresentedSessionIsACopy(t *testing.T) {
	result := sampleResult()
	result.RegulatoryRisks = []string{"GDPR"}
	c := NewController(&fakeAcquirer{payload: samplePayload()}, &fakeAnalyzer{result: result},
		WithPresenter(PresenterFunc(func(s model.ScanSession, _ func()) {
			s.Result.RegulatoryRisks[0] = "changed"
		})))

	_, err := c.StartFromUpload(context.Background(), pngFile(10))
	require.NoError(t, err)

	current, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "GDPR", current.Result.RegulatoryRisks[0])
}

func TestMessage(t *testing.T) {
	tests := []struct {
		kind     model.ErrorKind
		detail   string
		contains string
	}{
		{model.ErrUnsupportedFormat, "", "PNG, JPG, WebP"},
		{model.ErrCaptureTimeout, "", "timed out"},
		{model.ErrOffline, "", "No internet connection"},
		{model.ErrEmptyCapture, "", "uploading a screenshot manually"},
		{model.ErrCaptureFailed, "shop.example.com", `"shop.example.com"`},
		{model.ErrCaptureFailed, "", "the website"},
		{model.ErrCaptureBlocked, "", "This website"},
		{model.ErrMissingCredentials, "", "OPENAI_API_KEY"},
		{model.ErrScanInProgress, "", "already running"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.kind, tt.detail), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", model.NewError(tt.kind, tt.detail, nil))
			assert.Contains(t, Message(err), tt.contains)
		})
	}

	assert.Equal(t, "Something went wrong. Please try again.", Message(errors.New("boom")))
}

func TestEnter_RejectedTransitionIsReturned(t *testing.T) {
	var phases []string
	c := NewController(&fakeAcquirer{}, &fakeAnalyzer{},
		WithProgress(func(p string) { phases = append(phases, p) }))

	s := model.NewSession()
	require.NoError(t, s.Transition(model.StatusAnalyzing))
	require.NoError(t, s.Complete(sampleResult()))
	c.current = s

	err := c.enter(s, model.StatusUploading, PhaseProcessing)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, model.StatusComplete, s.Status)
	assert.Empty(t, c.Phase())
	assert.Empty(t, phases)
}

func TestFail_TerminalSessionIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, "session", logging.LevelDebug)
	c := NewController(&fakeAcquirer{}, &fakeAnalyzer{}, WithLogger(logger))

	s := model.NewSession()
	require.NoError(t, s.Transition(model.StatusAnalyzing))
	require.NoError(t, s.Complete(sampleResult()))

	snapshot, err := c.fail(s, logger, errors.New("late failure"))
	require.Error(t, err)
	assert.Equal(t, model.StatusComplete, snapshot.Status)
	assert.Contains(t, buf.String(), "session not marked failed")
	assert.Contains(t, buf.String(), "invalid session transition")
}
