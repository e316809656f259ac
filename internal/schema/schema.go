// Package schema defines the analysis result contract in both directions:
// the JSON Schema sent to the oracle and the validator applied to its reply.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/ppiankov/darklens/internal/model"
)

// Name is the schema name announced to oracles that support named schemas
const Name = "dark_pattern_audit"

// Field names shared by Definition and Parse. Changing one side without the
// other breaks TestDefinition_MatchesWireFields.
const (
	FieldOverallTrustScore    = "overallTrustScore"
	FieldDarkPatternRiskScore = "darkPatternRiskScore"
	FieldRegulatoryRisks      = "regulatoryRisks"
	FieldExecutiveSummary     = "executiveSummary"
	FieldDetections           = "detections"

	FieldPatternName = "patternName"
	FieldDescription = "description"
	FieldSeverity    = "severity"
	FieldConfidence  = "confidence"
	FieldBoundingBox = "boundingBox"
	FieldPsychology  = "psychology"
	FieldRedesign    = "redesign"

	FieldBias    = "bias"
	FieldEffect  = "effect"
	FieldEmotion = "emotion"

	FieldSuggestion = "suggestion"
	FieldPrinciple  = "principle"
	FieldImpact     = "impact"
)

// Score and confidence bounds
const (
	MinScore = 0
	MaxScore = 100
)

func severityEnum() []string {
	out := make([]string, 0, len(model.Severities))
	for _, s := range model.Severities {
		out = append(out, string(s))
	}
	return out
}

func str(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Description: desc}
}

func num(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Number, Description: desc}
}

func object(props map[string]jsonschema.Definition, required ...string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:                 jsonschema.Object,
		Properties:           props,
		Required:             required,
		AdditionalProperties: false,
	}
}

// Definition returns the outbound structured-output schema. All properties are
// required and no extra properties are allowed, which strict modes demand.
func Definition() jsonschema.Definition {
	psychology := object(map[string]jsonschema.Definition{
		FieldBias:    str("Cognitive bias exploited (e.g., Scarcity Bias)."),
		FieldEffect:  str("Intended psychological effect on the user."),
		FieldEmotion: str("Likely emotion induced (e.g., Anxiety)."),
	}, FieldBias, FieldEffect, FieldEmotion)
	psychology.Description = "Why the pattern works on people."

	redesign := object(map[string]jsonschema.Definition{
		FieldSuggestion: str("Specific copy or layout change."),
		FieldPrinciple:  str("Ethical principle applied."),
		FieldImpact:     str("Expected impact on trust and conversion."),
	}, FieldSuggestion, FieldPrinciple, FieldImpact)
	redesign.Description = "An ethical alternative that keeps the business goal."

	detection := object(map[string]jsonschema.Definition{
		FieldPatternName: str("Name of the dark pattern (e.g., False Urgency)."),
		FieldDescription: str("Brief description of where and what the pattern is."),
		FieldSeverity: {
			Type: jsonschema.String,
			Enum: severityEnum(),
		},
		FieldConfidence: num("Confidence score 0-100."),
		FieldBoundingBox: {
			Type:        jsonschema.Array,
			Items:       &jsonschema.Definition{Type: jsonschema.Number},
			Description: "Coordinates [ymin, xmin, ymax, xmax] normalized to 0-1000 scale.",
		},
		FieldPsychology: psychology,
		FieldRedesign:   redesign,
	}, FieldPatternName, FieldDescription, FieldSeverity, FieldConfidence, FieldBoundingBox, FieldPsychology, FieldRedesign)

	return object(map[string]jsonschema.Definition{
		FieldOverallTrustScore:    num("A score from 0 to 100 indicating how trustworthy the UX is."),
		FieldDarkPatternRiskScore: num("A score from 0 to 100 indicating the severity of dark patterns detected."),
		FieldRegulatoryRisks: {
			Type:        jsonschema.Array,
			Items:       &jsonschema.Definition{Type: jsonschema.String},
			Description: "List of potential legal or compliance risks (e.g., GDPR, FTC).",
		},
		FieldExecutiveSummary: str("A concise executive summary of the audit findings."),
		FieldDetections: {
			Type:  jsonschema.Array,
			Items: &detection,
		},
	}, FieldOverallTrustScore, FieldDarkPatternRiskScore, FieldRegulatoryRisks, FieldExecutiveSummary, FieldDetections)
}

// JSON returns Definition marshalled as a JSON Schema document
func JSON() json.RawMessage {
	def := Definition()
	data, err := json.Marshal(&def)
	if err != nil {
		// Definition is a static literal; a marshal failure is a programming error
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	return data
}
