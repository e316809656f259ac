package render

import (
	"errors"
	"io"

	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
)

// Outputs selects the report files to write. Empty paths are skipped.
type Outputs struct {
	JSONPath string
	MDPath   string
	YAMLPath string
	Focus    int // 1-based detection to expand in the summary, 0 for none
}

// ReportPresenter renders every completed session it is handed
type ReportPresenter struct {
	renderer *Renderer
	out      io.Writer
	outputs  Outputs
	provider string
	logger   logging.Logger

	last *model.Report
	err  error
}

// NewReportPresenter creates a presenter printing summaries to out
func NewReportPresenter(renderer *Renderer, out io.Writer, outputs Outputs, provider string, logger logging.Logger) *ReportPresenter {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &ReportPresenter{
		renderer: renderer,
		out:      out,
		outputs:  outputs,
		provider: provider,
		logger:   logger,
	}
}

// Present renders session and then resets the controller
func (p *ReportPresenter) Present(session model.ScanSession, reset func()) {
	defer reset()

	report, err := p.renderer.BuildReport(session, p.provider)
	if err != nil {
		p.err = err
		return
	}
	p.last = report

	cursor := NewCursor(session.Result)
	if p.outputs.Focus > 0 {
		if err := cursor.SelectIndex(p.outputs.Focus); err != nil {
			p.logger.Warn("ignoring --focus", logging.Err(err))
		}
	}
	if p.out != nil {
		p.renderer.Summary(p.out, report, cursor)
	}

	var errs []error
	if p.outputs.JSONPath != "" {
		errs = append(errs, p.write("json", p.outputs.JSONPath, p.renderer.RenderJSON(report, p.outputs.JSONPath)))
	}
	if p.outputs.MDPath != "" {
		errs = append(errs, p.write("markdown", p.outputs.MDPath, p.renderer.RenderMarkdown(report, p.outputs.MDPath)))
	}
	if p.outputs.YAMLPath != "" {
		errs = append(errs, p.write("yaml", p.outputs.YAMLPath, p.renderer.RenderYAML(report, p.outputs.YAMLPath)))
	}
	p.err = errors.Join(errs...)
}

func (p *ReportPresenter) write(format, path string, err error) error {
	if err != nil {
		return err
	}
	p.logger.Info("report written", logging.F("format", format), logging.F("path", path))
	return nil
}

// Last returns the most recent report, or nil
func (p *ReportPresenter) Last() *model.Report {
	return p.last
}

// Err returns the error from the most recent Present call
func (p *ReportPresenter) Err() error {
	return p.err
}
