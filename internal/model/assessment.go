package model

// Assessment summarizes an AnalysisResult for reports. It is derived locally
// and never sent to or received from the oracle.
type Assessment struct {
	Band       TrustBand `json:"band" yaml:"band"`
	Confidence string    `json:"confidence" yaml:"confidence"` // "low", "medium", "high"
	Signals    []Signal  `json:"signals" yaml:"signals"`
}

// TrustBand buckets the overall trust score
type TrustBand string

const (
	BandTrustworthy  TrustBand = "trustworthy"  // 80-100
	BandMostlyFair   TrustBand = "mostly_fair"  // 60-79
	BandQuestionable TrustBand = "questionable" // 40-59
	BandManipulative TrustBand = "manipulative" // 0-39
)

// Signal represents a diagnostic signal with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type" yaml:"type"`
	Severity    SignalSeverity         `json:"severity" yaml:"severity"`
	Description string                 `json:"description" yaml:"description"`
	Data        map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalSeverityMix        SignalType = "severity_mix"        // High/Medium/Low counts
	SignalRegulatoryExposure SignalType = "regulatory_exposure" // Flagged regulations
	SignalScoreDivergence    SignalType = "score_divergence"    // Trust and risk disagree
	SignalLowConfidence      SignalType = "low_confidence"      // Findings the oracle was unsure of
	SignalPatternCoverage    SignalType = "pattern_coverage"    // Share of the viewport flagged
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SignalInfo     SignalSeverity = "info"
	SignalWarning  SignalSeverity = "warning"
	SignalCritical SignalSeverity = "critical"
)
