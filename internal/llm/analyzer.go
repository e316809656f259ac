package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/darklens/internal/acquire"
	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
	"github.com/ppiankov/darklens/internal/schema"
)

// Analyzer submits acquired images to the oracle and validates the reply
type Analyzer struct {
	provider    Provider
	config      Config
	initErr     error
	prompt      string
	temperature float32
	logger      logging.Logger
}

// NewAnalyzer creates an analyzer for config. A missing credential is not an
// error here; it surfaces as MissingCredentials on the first Analyze call so
// a scan can report it through the session.
func NewAnalyzer(config Config, logger logging.Logger) (*Analyzer, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	a := &Analyzer{
		config:      config,
		prompt:      BuildPrompt(),
		temperature: config.Temperature,
		logger:      logger,
	}
	// Zero is a valid, fully deterministic setting
	if a.temperature < 0 {
		a.temperature = model.DefaultTemperature
	}

	if RequiresAPIKey(config.Provider) && strings.TrimSpace(config.APIKey) == "" {
		a.initErr = ErrMissingAPIKey
		return a, nil
	}

	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	a.provider = provider
	return a, nil
}

// NewAnalyzerWithProvider wraps an existing provider
func NewAnalyzerWithProvider(provider Provider, logger logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Analyzer{
		provider:    provider,
		prompt:      BuildPrompt(),
		temperature: model.DefaultTemperature,
		logger:      logger,
	}
}

// ProviderName returns the provider name, falling back to the configured one
// when credentials are missing
func (a *Analyzer) ProviderName() string {
	if a.provider == nil {
		return normalizeProvider(a.config.Provider)
	}
	return a.provider.Name()
}

// Provider returns the underlying provider, or nil without credentials
func (a *Analyzer) Provider() Provider {
	return a.provider
}

// Analyze runs one audit of payload. There is no retry.
func (a *Analyzer) Analyze(ctx context.Context, payload *acquire.ImagePayload) (*model.AnalysisResult, error) {
	if a.initErr != nil || a.provider == nil {
		cause := a.initErr
		if cause == nil {
			cause = ErrMissingAPIKey
		}
		return nil, model.NewError(model.ErrMissingCredentials, normalizeProvider(a.config.Provider), cause)
	}
	if payload == nil || len(payload.Binary) == 0 {
		return nil, model.NewError(model.ErrReadError, "", errors.New("empty image payload"))
	}

	start := time.Now()
	resp, err := a.provider.Analyze(ctx, AnalyzeRequest{
		ImageBase64: payload.Base64(),
		MIMEType:    payload.MIMEType,
		Prompt:      a.prompt,
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, model.NewError(model.ErrOracleUnavailable, a.provider.Name(), err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, model.NewError(model.ErrOracleUnavailable, a.provider.Name(), fmt.Errorf("empty response"))
	}

	result, err := schema.Parse(resp.Content)
	if err != nil {
		return nil, err
	}

	a.logger.Info("analysis complete",
		logging.F("provider", a.provider.Name()),
		logging.F("model", resp.Model),
		logging.F("detections", len(result.Detections)),
		logging.F("tokens", resp.TokensUsed),
		logging.F("duration_ms", time.Since(start).Milliseconds()))

	return result, nil
}
