package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a ScanSession
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// ErrInvalidTransition is returned when a session is asked to move along an edge
// the state machine does not have
var ErrInvalidTransition = errors.New("invalid session transition")

// transitions lists every allowed edge. complete and error have no outgoing edges.
var transitions = map[Status][]Status{
	StatusIdle:      {StatusUploading, StatusAnalyzing},
	StatusUploading: {StatusAnalyzing, StatusError},
	StatusAnalyzing: {StatusComplete, StatusError},
}

// CanTransition reports whether the state machine has an edge from -> to
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Active reports whether a scan in this state is still in flight
func (s Status) Active() bool {
	return s == StatusUploading || s == StatusAnalyzing
}

// ScanSession is one audit run
type ScanSession struct {
	ID        string          `json:"id" yaml:"id"`
	ImageURL  string          `json:"imageUrl" yaml:"-"`                               // data URI, omitted from YAML
	SourceURL string          `json:"sourceUrl,omitempty" yaml:"source_url,omitempty"` // Only for live-URL capture
	Status    Status          `json:"status" yaml:"status"`
	Result    *AnalysisResult `json:"result" yaml:"result"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// NewSession creates an idle session with a fresh id
func NewSession() *ScanSession {
	return &ScanSession{
		ID:        uuid.New().String(),
		Status:    StatusIdle,
		Timestamp: time.Now().UTC(),
	}
}

// Transition moves the session to a non-terminal-by-result state.
// Use Complete and Fail for the terminal edges.
func (s *ScanSession) Transition(to Status) error {
	if to == StatusComplete || to == StatusError {
		return fmt.Errorf("%w: %s -> %s requires Complete or Fail", ErrInvalidTransition, s.Status, to)
	}
	return s.move(to)
}

// SetSource records the origin URL of a captured image. It can be set only once.
func (s *ScanSession) SetSource(sourceURL string) error {
	if s.SourceURL != "" && s.SourceURL != sourceURL {
		return fmt.Errorf("source url already set to %s", s.SourceURL)
	}
	s.SourceURL = sourceURL
	return nil
}

// Complete attaches the result and moves the session to complete
func (s *ScanSession) Complete(result *AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("%w: complete without result", ErrInvalidTransition)
	}
	if err := s.move(StatusComplete); err != nil {
		return err
	}
	s.Result = result
	return nil
}

// Fail moves the session to error with a human-readable message
func (s *ScanSession) Fail(message string) error {
	if err := s.move(StatusError); err != nil {
		return err
	}
	s.Error = message
	return nil
}

func (s *ScanSession) move(to Status) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// Snapshot returns a read-only copy safe to hand to another owner
func (s *ScanSession) Snapshot() ScanSession {
	out := *s
	out.Result = s.Result.Clone()
	return out
}
