package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/ppiankov/darklens/internal/acquire"
)

// auditJSON is a valid oracle reply with one detection
const auditJSON = `{
  "overallTrustScore": 35,
  "darkPatternRiskScore": 70,
  "regulatoryRisks": ["GDPR Art. 7 consent"],
  "executiveSummary": "The checkout pressures users with a fake countdown.",
  "detections": [{
    "patternName": "Fake Urgency",
    "description": "Countdown timer resets on reload.",
    "severity": "High",
    "confidence": 88,
    "boundingBox": [100, 200, 300, 800],
    "psychology": {"bias": "Scarcity", "effect": "Rushed decision", "emotion": "Anxiety"},
    "redesign": {"suggestion": "Remove the timer", "principle": "Honesty", "impact": "Higher trust"}
  }]
}`

// tinyPNG is a PNG signature followed by padding
var tinyPNG = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)

func testPayload() *acquire.ImagePayload {
	return &acquire.ImagePayload{
		Binary:   tinyPNG,
		MIMEType: "image/png",
		DataURI:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG),
	}
}

func testRequest() AnalyzeRequest {
	return AnalyzeRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(tinyPNG),
		MIMEType:    "image/png",
		Prompt:      BuildPrompt(),
		Temperature: 0.2,
	}
}

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *AnalyzeResponse
	err       error

	calls   int
	lastReq AnalyzeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func decodeBody(body []byte) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(body, &out)
	return out
}
