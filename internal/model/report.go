package model

import "time"

// Report is the exported audit of one completed scan
type Report struct {
	Tool        string      `json:"tool" yaml:"tool"`
	Version     string      `json:"version" yaml:"version"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
	Provider    string      `json:"provider,omitempty" yaml:"provider,omitempty"` // openai, anthropic, ollama
	Session     ScanSession `json:"session" yaml:"session"`
	Assessment  Assessment  `json:"assessment" yaml:"assessment"`
}

// Subject names what was scanned: the source URL, or "uploaded screenshot"
func (r *Report) Subject() string {
	if r.Session.SourceURL != "" {
		return r.Session.SourceURL
	}
	return "uploaded screenshot"
}
