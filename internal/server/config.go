package server

import (
	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/render"
	"github.com/ppiankov/darklens/internal/session"
)

// Config wires the server to its scan collaborators
type Config struct {
	// ListenAddr is the HTTP listen address
	ListenAddr string

	Acquirer session.Acquirer
	Analyzer session.Analyzer
	Renderer *render.Renderer

	// Provider names the analysis backend in reports
	Provider string

	// MaxUploadBytes bounds image uploads; multipart overhead is allowed on top
	MaxUploadBytes int64

	// MaxConcurrentScans bounds scans in flight; QueueDepth more may wait for a slot
	MaxConcurrentScans int
	QueueDepth         int

	Logger logging.Logger
}
