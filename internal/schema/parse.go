package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/darklens/internal/model"
)

// Wire shapes use pointers so absent fields, and null array elements, can be
// told apart from zero values. JSON tags must match the Field* constants.

type wireResult struct {
	OverallTrustScore    *float64         `json:"overallTrustScore"`
	DarkPatternRiskScore *float64         `json:"darkPatternRiskScore"`
	RegulatoryRisks      *[]*string       `json:"regulatoryRisks"`
	ExecutiveSummary     *string          `json:"executiveSummary"`
	Detections           *[]wireDetection `json:"detections"`
}

type wireDetection struct {
	PatternName *string         `json:"patternName"`
	Description *string         `json:"description"`
	Severity    *string         `json:"severity"`
	Confidence  *float64        `json:"confidence"`
	BoundingBox *[]*float64     `json:"boundingBox"`
	Psychology  *wirePsychology `json:"psychology"`
	Redesign    *wireRedesign   `json:"redesign"`
}

type wirePsychology struct {
	Bias    *string `json:"bias"`
	Effect  *string `json:"effect"`
	Emotion *string `json:"emotion"`
}

type wireRedesign struct {
	Suggestion *string `json:"suggestion"`
	Principle  *string `json:"principle"`
	Impact     *string `json:"impact"`
}

// Parse validates raw oracle output and converts it to an AnalysisResult.
// Every detection gets a fresh id from a counter scoped to this result.
// On any violation it returns a MalformedResponse error and no result.
func Parse(raw string) (*model.AnalysisResult, error) {
	body := stripFence(raw)
	if body == "" {
		return nil, malformed("empty response", nil)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var w wireResult
	if err := dec.Decode(&w); err != nil {
		return nil, malformed("decode", err)
	}
	if dec.More() {
		return nil, malformed("trailing data after JSON object", nil)
	}

	trust, err := score(FieldOverallTrustScore, w.OverallTrustScore)
	if err != nil {
		return nil, err
	}
	risk, err := score(FieldDarkPatternRiskScore, w.DarkPatternRiskScore)
	if err != nil {
		return nil, err
	}
	if w.RegulatoryRisks == nil {
		return nil, missing(FieldRegulatoryRisks)
	}
	risks := make([]string, 0, len(*w.RegulatoryRisks))
	for i, r := range *w.RegulatoryRisks {
		if r == nil {
			return nil, missing(fmt.Sprintf("%s[%d]", FieldRegulatoryRisks, i))
		}
		risks = append(risks, *r)
	}
	summary, err := text(FieldExecutiveSummary, w.ExecutiveSummary)
	if err != nil {
		return nil, err
	}
	if w.Detections == nil {
		return nil, missing(FieldDetections)
	}

	result := &model.AnalysisResult{
		OverallTrustScore:    trust,
		DarkPatternRiskScore: risk,
		RegulatoryRisks:      risks,
		ExecutiveSummary:     summary,
		Detections:           make([]model.Detection, 0, len(*w.Detections)),
	}

	ids := newIDSequence()
	for i, wd := range *w.Detections {
		d, err := detection(wd)
		if err != nil {
			return nil, malformed(fmt.Sprintf("%s[%d]", FieldDetections, i), err)
		}
		d.ID = ids.next()
		result.Detections = append(result.Detections, d)
	}

	return result, nil
}

func detection(w wireDetection) (model.Detection, error) {
	var d model.Detection
	var err error

	if d.PatternName, err = text(FieldPatternName, w.PatternName); err != nil {
		return d, err
	}
	if w.Description == nil {
		return d, missing(FieldDescription)
	}
	d.Description = *w.Description

	if w.Severity == nil {
		return d, missing(FieldSeverity)
	}
	d.Severity = model.Severity(*w.Severity)
	if !d.Severity.Valid() {
		return d, malformed(fmt.Sprintf("%s %q not in %v", FieldSeverity, *w.Severity, model.Severities), nil)
	}

	if d.Confidence, err = score(FieldConfidence, w.Confidence); err != nil {
		return d, err
	}

	if w.BoundingBox == nil {
		return d, missing(FieldBoundingBox)
	}
	box := *w.BoundingBox
	if len(box) != 4 {
		return d, malformed(fmt.Sprintf("%s has %d values, want 4", FieldBoundingBox, len(box)), nil)
	}
	for i, v := range box {
		if v == nil {
			return d, missing(fmt.Sprintf("%s[%d]", FieldBoundingBox, i))
		}
		d.BoundingBox[i] = *v
	}
	if !d.BoundingBox.Valid() {
		return d, malformed(fmt.Sprintf("%s %v outside 0-%d or inverted", FieldBoundingBox, d.BoundingBox, model.BoxScale), nil)
	}

	if w.Psychology == nil {
		return d, missing(FieldPsychology)
	}
	if d.Psychology.Bias, err = text(FieldPsychology+"."+FieldBias, w.Psychology.Bias); err != nil {
		return d, err
	}
	if d.Psychology.Effect, err = text(FieldPsychology+"."+FieldEffect, w.Psychology.Effect); err != nil {
		return d, err
	}
	if d.Psychology.Emotion, err = text(FieldPsychology+"."+FieldEmotion, w.Psychology.Emotion); err != nil {
		return d, err
	}

	if w.Redesign == nil {
		return d, missing(FieldRedesign)
	}
	if d.Redesign.Suggestion, err = text(FieldRedesign+"."+FieldSuggestion, w.Redesign.Suggestion); err != nil {
		return d, err
	}
	if d.Redesign.Principle, err = text(FieldRedesign+"."+FieldPrinciple, w.Redesign.Principle); err != nil {
		return d, err
	}
	if d.Redesign.Impact, err = text(FieldRedesign+"."+FieldImpact, w.Redesign.Impact); err != nil {
		return d, err
	}

	return d, nil
}

func score(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, missing(field)
	}
	if *v < MinScore || *v > MaxScore {
		return 0, malformed(fmt.Sprintf("%s %v outside %d-%d", field, *v, MinScore, MaxScore), nil)
	}
	return *v, nil
}

func text(field string, v *string) (string, error) {
	if v == nil {
		return "", missing(field)
	}
	if strings.TrimSpace(*v) == "" {
		return "", malformed(field+" is empty", nil)
	}
	return *v, nil
}

func missing(field string) error {
	return malformed("missing required field "+field, nil)
}

func malformed(detail string, err error) error {
	return model.NewError(model.ErrMalformedResponse, detail, err)
}

// stripFence removes one surrounding ``` or ```json fence. Oracles without a
// native structured-output mode often wrap their JSON this way.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type idSequence struct {
	n int
}

func newIDSequence() *idSequence {
	return &idSequence{}
}

func (s *idSequence) next() string {
	s.n++
	return fmt.Sprintf("detect-%d", s.n)
}
