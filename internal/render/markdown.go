package render

import (
	"fmt"
	"strings"

	"github.com/ppiankov/darklens/internal/model"
)

// Markdown renders report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	result := report.Session.Result

	fmt.Fprintf(&b, "# Dark Pattern Audit: %s\n\n", report.Subject())
	fmt.Fprintf(&b, "- **Scanned:** %s\n", report.Session.Timestamp.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- **Session:** `%s`\n", report.Session.ID)
	if report.Provider != "" {
		fmt.Fprintf(&b, "- **Analysis:** %s\n", report.Provider)
	}
	b.WriteString("\n")

	b.WriteString("## Scores\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Overall trust | %.0f/100 (%s) |\n", result.OverallTrustScore, bandLabel(report.Assessment.Band))
	fmt.Fprintf(&b, "| Dark pattern risk | %.0f/100 |\n", result.DarkPatternRiskScore)
	fmt.Fprintf(&b, "| Findings | %d |\n", len(result.Detections))
	fmt.Fprintf(&b, "| Confidence | %s |\n\n", report.Assessment.Confidence)

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(result.ExecutiveSummary)
	b.WriteString("\n\n")

	if len(result.RegulatoryRisks) > 0 {
		b.WriteString("## Regulatory Risks\n\n")
		for _, risk := range result.RegulatoryRisks {
			fmt.Fprintf(&b, "- %s\n", risk)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Findings\n\n")
	if len(result.Detections) == 0 {
		b.WriteString("No dark patterns detected.\n\n")
	}
	for i, d := range result.Detections {
		writeDetectionMarkdown(&b, i+1, d)
	}

	if len(report.Assessment.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, s := range report.Assessment.Signals {
			fmt.Fprintf(&b, "- %s **%s**: %s\n", severityIcon(s.Severity), s.Type, s.Description)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		fmt.Fprintf(&b, "---\n\n_Generated by darklens %s on %s. Findings are model judgements; verify before acting on them._\n",
			report.Version, report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	}

	return b.String()
}

func writeDetectionMarkdown(b *strings.Builder, n int, d model.Detection) {
	fmt.Fprintf(b, "### %d. %s\n\n", n, d.PatternName)
	fmt.Fprintf(b, "**Severity:** %s · **Confidence:** %.0f%% · **Location:** %s\n\n", d.Severity, d.Confidence, location(d.BoundingBox))
	b.WriteString(d.Description)
	b.WriteString("\n\n")

	b.WriteString("**Psychology**\n\n")
	fmt.Fprintf(b, "- Bias: %s\n", d.Psychology.Bias)
	fmt.Fprintf(b, "- Effect: %s\n", d.Psychology.Effect)
	fmt.Fprintf(b, "- Emotion: %s\n\n", d.Psychology.Emotion)

	b.WriteString("**Ethical redesign**\n\n")
	fmt.Fprintf(b, "- Suggestion: %s\n", d.Redesign.Suggestion)
	fmt.Fprintf(b, "- Principle: %s\n", d.Redesign.Principle)
	fmt.Fprintf(b, "- Impact: %s\n\n", d.Redesign.Impact)
}

// location describes a box as percentages of the viewport
func location(box model.BoundingBox) string {
	p := box.Percent()
	return fmt.Sprintf("top %.0f%%, left %.0f%%, %.0f%% × %.0f%%", p.Top, p.Left, p.Width, p.Height)
}

func bandLabel(band model.TrustBand) string {
	return strings.ReplaceAll(string(band), "_", " ")
}

func severityIcon(s model.SignalSeverity) string {
	switch s {
	case model.SignalCritical:
		return "🔴"
	case model.SignalWarning:
		return "🟡"
	default:
		return "🟢"
	}
}
