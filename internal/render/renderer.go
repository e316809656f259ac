// Package render turns completed scan sessions into reports.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/darklens/internal/model"
	"github.com/ppiankov/darklens/internal/score"
)

// Renderer writes reports in JSON, Markdown and YAML
type Renderer struct {
	version       string
	includeFooter bool
	scorer        *score.Scorer
	now           func() time.Time
}

// NewRenderer creates a renderer stamping reports with version
func NewRenderer(version string, includeFooter bool) *Renderer {
	return &Renderer{
		version:       version,
		includeFooter: includeFooter,
		scorer:        score.NewScorer(),
		now:           time.Now,
	}
}

// BuildReport assembles the report for a completed session
func (r *Renderer) BuildReport(session model.ScanSession, provider string) (*model.Report, error) {
	if session.Status != model.StatusComplete || session.Result == nil {
		return nil, fmt.Errorf("session %s is %s, not complete", session.ID, session.Status)
	}
	return &model.Report{
		Tool:        "darklens",
		Version:     r.version,
		GeneratedAt: r.now().UTC(),
		Provider:    provider,
		Session:     session,
		Assessment:  r.scorer.Assess(session.Result),
	}, nil
}

// RenderJSON writes report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderYAML writes report as YAML. The image data URI is omitted.
func (r *Renderer) RenderYAML(report *model.Report, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}
	return writeFile(path, data)
}

// RenderMarkdown writes report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
