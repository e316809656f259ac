package model

import "image"

// Coordinate space for bounding boxes, independent of the image's pixel size
const BoxScale = 1000

// Severity classifies how harmful a detected pattern is
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Severities lists the allowed severity values in descending order
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

// Valid reports whether s is one of the three allowed values
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// AnalysisResult is the oracle's structured audit of one image
type AnalysisResult struct {
	OverallTrustScore    float64     `json:"overallTrustScore" yaml:"overall_trust_score"`
	DarkPatternRiskScore float64     `json:"darkPatternRiskScore" yaml:"dark_pattern_risk_score"`
	RegulatoryRisks      []string    `json:"regulatoryRisks" yaml:"regulatory_risks"`
	ExecutiveSummary     string      `json:"executiveSummary" yaml:"executive_summary"`
	Detections           []Detection `json:"detections" yaml:"detections"`
}

// Detection is one located manipulative-pattern finding
type Detection struct {
	ID          string      `json:"id" yaml:"id"` // Assigned locally, unique within one result
	PatternName string      `json:"patternName" yaml:"pattern_name"`
	Description string      `json:"description" yaml:"description"`
	Severity    Severity    `json:"severity" yaml:"severity"`
	Confidence  float64     `json:"confidence" yaml:"confidence"`
	BoundingBox BoundingBox `json:"boundingBox" yaml:"bounding_box"`
	Psychology  Psychology  `json:"psychology" yaml:"psychology"`
	Redesign    Redesign    `json:"redesign" yaml:"redesign"`
}

// Psychology explains the bias a pattern exploits
type Psychology struct {
	Bias    string `json:"bias" yaml:"bias"`
	Effect  string `json:"effect" yaml:"effect"`
	Emotion string `json:"emotion" yaml:"emotion"`
}

// Redesign is the ethical alternative proposed for a finding
type Redesign struct {
	Suggestion string `json:"suggestion" yaml:"suggestion"`
	Principle  string `json:"principle" yaml:"principle"`
	Impact     string `json:"impact" yaml:"impact"`
}

// BoundingBox is [ymin, xmin, ymax, xmax] on a 0-1000 scale
type BoundingBox [4]float64

func (b BoundingBox) YMin() float64 { return b[0] }
func (b BoundingBox) XMin() float64 { return b[1] }
func (b BoundingBox) YMax() float64 { return b[2] }
func (b BoundingBox) XMax() float64 { return b[3] }

// Valid reports whether every coordinate is within [0, BoxScale] and min <= max on both axes
func (b BoundingBox) Valid() bool {
	for _, v := range b {
		if v < 0 || v > BoxScale {
			return false
		}
	}
	return b.YMin() <= b.YMax() && b.XMin() <= b.XMax()
}

// BoxPercent is a bounding box expressed as CSS-style percentages
type BoxPercent struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
}

// Percent converts the box to percentages of the image for overlay rendering
func (b BoundingBox) Percent() BoxPercent {
	return BoxPercent{
		Top:    b.YMin() / 10,
		Left:   b.XMin() / 10,
		Height: (b.YMax() - b.YMin()) / 10,
		Width:  (b.XMax() - b.XMin()) / 10,
	}
}

// Scale maps the box onto an image of the given pixel dimensions
func (b BoundingBox) Scale(width, height int) image.Rectangle {
	px := func(v float64, dim int) int {
		return int(v * float64(dim) / BoxScale)
	}
	return image.Rect(px(b.XMin(), width), px(b.YMin(), height), px(b.XMax(), width), px(b.YMax(), height))
}

// Clone returns a deep copy so a handed-off result shares no slices with its producer
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.RegulatoryRisks != nil {
		out.RegulatoryRisks = append([]string(nil), r.RegulatoryRisks...)
	}
	if r.Detections != nil {
		out.Detections = append([]Detection(nil), r.Detections...)
	}
	return &out
}

// Detection looks up a detection by its local id
func (r *AnalysisResult) Detection(id string) (Detection, bool) {
	if r == nil {
		return Detection{}, false
	}
	for _, d := range r.Detections {
		if d.ID == id {
			return d, true
		}
	}
	return Detection{}, false
}

// CountBySeverity tallies detections per severity
func (r *AnalysisResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	if r == nil {
		return counts
	}
	for _, d := range r.Detections {
		counts[d.Severity]++
	}
	return counts
}
