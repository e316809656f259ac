package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/darklens/internal/model"
)

// Summary prints a terminal overview of report. The detection under cursor,
// if any, is marked and expanded.
func (r *Renderer) Summary(w io.Writer, report *model.Report, cursor *Cursor) {
	result := report.Session.Result
	selected := ""
	if cursor != nil {
		selected = cursor.SelectedID()
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  darklens: %s\n", report.Subject())
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  Trust score:  %3.0f/100  (%s)\n", result.OverallTrustScore, bandLabel(report.Assessment.Band))
	fmt.Fprintf(w, "  Risk score:   %3.0f/100\n", result.DarkPatternRiskScore)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n\n", result.ExecutiveSummary)

	if len(result.Detections) == 0 {
		fmt.Fprintln(w, "  No dark patterns detected.")
	}
	for i, d := range result.Detections {
		marker := " "
		if d.ID == selected {
			marker = "▶"
		}
		fmt.Fprintf(w, "%s %d. [%-6s] %s (%.0f%%)\n", marker, i+1, d.Severity, d.PatternName, d.Confidence)
		if d.ID == selected {
			writeDetectionDetail(w, d)
		}
	}

	if len(result.RegulatoryRisks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Regulatory risks: %s\n", strings.Join(result.RegulatoryRisks, "; "))
	}
	fmt.Fprintln(w)
}

func writeDetectionDetail(w io.Writer, d model.Detection) {
	fmt.Fprintf(w, "     %s\n", d.Description)
	fmt.Fprintf(w, "     Location:  %s\n", location(d.BoundingBox))
	fmt.Fprintf(w, "     Bias:      %s (%s, %s)\n", d.Psychology.Bias, d.Psychology.Effect, d.Psychology.Emotion)
	fmt.Fprintf(w, "     Redesign:  %s\n", d.Redesign.Suggestion)
	fmt.Fprintf(w, "     Principle: %s, %s\n", d.Redesign.Principle, d.Redesign.Impact)
}
