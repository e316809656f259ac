package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/darklens/internal/model"
)

// Thresholds for derived signals
const (
	// DivergenceThreshold is how far trust+risk may drift from 100 before the
	// two scores are reported as inconsistent
	DivergenceThreshold = 40.0

	// LowConfidence marks findings worth a second look. They are reported,
	// never dropped.
	LowConfidence = 50.0
)

// Scorer derives an assessment and diagnostic signals from an analysis result
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Assess builds the assessment for result
func (s *Scorer) Assess(result *model.AnalysisResult) model.Assessment {
	if result == nil {
		return model.Assessment{Band: model.BandManipulative, Confidence: "low"}
	}

	signals := []model.Signal{
		s.severityMix(result),
		s.regulatoryExposure(result),
	}

	if sig := s.scoreDivergence(result); sig.Type != "" {
		signals = append(signals, sig)
	}
	if sig := s.lowConfidence(result); sig.Type != "" {
		signals = append(signals, sig)
	}
	if len(result.Detections) > 0 {
		signals = append(signals, s.patternCoverage(result))
	}

	return model.Assessment{
		Band:       Band(result.OverallTrustScore),
		Confidence: s.determineConfidence(result),
		Signals:    signals,
	}
}

// Band buckets a trust score
func Band(trust float64) model.TrustBand {
	switch {
	case trust >= 80:
		return model.BandTrustworthy
	case trust >= 60:
		return model.BandMostlyFair
	case trust >= 40:
		return model.BandQuestionable
	default:
		return model.BandManipulative
	}
}

// severityMix counts findings per severity
func (s *Scorer) severityMix(result *model.AnalysisResult) model.Signal {
	counts := result.CountBySeverity()
	high, medium, low := counts[model.SeverityHigh], counts[model.SeverityMedium], counts[model.SeverityLow]

	severity := model.SignalInfo
	if high > 0 {
		severity = model.SignalCritical
	} else if medium > 0 {
		severity = model.SignalWarning
	}

	description := "No dark patterns detected"
	if total := len(result.Detections); total > 0 {
		description = fmt.Sprintf("%d dark pattern(s): %d high, %d medium, %d low", total, high, medium, low)
	}

	return model.Signal{
		Type:        model.SignalSeverityMix,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"high":   high,
			"medium": medium,
			"low":    low,
			"total":  len(result.Detections),
		},
	}
}

// regulatoryExposure reports flagged regulations, escalating when high-severity findings back them
func (s *Scorer) regulatoryExposure(result *model.AnalysisResult) model.Signal {
	n := len(result.RegulatoryRisks)
	if n == 0 {
		return model.Signal{
			Type:        model.SignalRegulatoryExposure,
			Severity:    model.SignalInfo,
			Description: "No regulatory risks flagged",
			Data:        map[string]interface{}{"risks": 0},
		}
	}

	severity := model.SignalWarning
	if result.CountBySeverity()[model.SeverityHigh] > 0 {
		severity = model.SignalCritical
	}

	return model.Signal{
		Type:        model.SignalRegulatoryExposure,
		Severity:    severity,
		Description: fmt.Sprintf("%d regulatory risk(s) flagged", n),
		Data: map[string]interface{}{
			"risks":     n,
			"citations": result.RegulatoryRisks,
		},
	}
}

// scoreDivergence flags results whose trust and risk scores contradict each other
func (s *Scorer) scoreDivergence(result *model.AnalysisResult) model.Signal {
	drift := math.Abs(result.OverallTrustScore + result.DarkPatternRiskScore - 100)
	if drift <= DivergenceThreshold {
		return model.Signal{}
	}

	return model.Signal{
		Type:        model.SignalScoreDivergence,
		Severity:    model.SignalWarning,
		Description: fmt.Sprintf("Trust score %.0f and risk score %.0f disagree", result.OverallTrustScore, result.DarkPatternRiskScore),
		Data: map[string]interface{}{
			"trust":     result.OverallTrustScore,
			"risk":      result.DarkPatternRiskScore,
			"drift":     drift,
			"threshold": DivergenceThreshold,
			"formula":   "|trust + risk - 100|",
		},
	}
}

// lowConfidence lists findings below LowConfidence
func (s *Scorer) lowConfidence(result *model.AnalysisResult) model.Signal {
	var ids []string
	for _, d := range result.Detections {
		if d.Confidence < LowConfidence {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return model.Signal{}
	}

	return model.Signal{
		Type:        model.SignalLowConfidence,
		Severity:    model.SignalInfo,
		Description: fmt.Sprintf("%d finding(s) below %.0f%% confidence; verify manually", len(ids), LowConfidence),
		Data: map[string]interface{}{
			"detections": ids,
			"threshold":  LowConfidence,
		},
	}
}

// patternCoverage estimates the share of the viewport covered by findings.
// Overlapping boxes are counted twice, so the value is an upper bound.
func (s *Scorer) patternCoverage(result *model.AnalysisResult) model.Signal {
	area := 0.0
	for _, d := range result.Detections {
		p := d.BoundingBox.Percent()
		area += p.Height * p.Width / 100
	}
	area = math.Min(area, 100)

	severity := model.SignalInfo
	if area >= 25 {
		severity = model.SignalWarning
	}

	return model.Signal{
		Type:        model.SignalPatternCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Findings cover up to %.1f%% of the viewport", area),
		Data: map[string]interface{}{
			"percent": area,
			"formula": "min(sum(height% * width% / 100), 100)",
		},
	}
}

// determineConfidence rates the assessment from the oracle's own confidence values
func (s *Scorer) determineConfidence(result *model.AnalysisResult) string {
	if len(result.Detections) == 0 {
		if result.OverallTrustScore >= 80 {
			return "high"
		}
		return "medium"
	}

	sum := 0.0
	for _, d := range result.Detections {
		sum += d.Confidence
	}
	mean := sum / float64(len(result.Detections))

	switch {
	case mean >= 75:
		return "high"
	case mean >= 50:
		return "medium"
	default:
		return "low"
	}
}
