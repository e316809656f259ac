package server

import "github.com/ppiankov/darklens/internal/model"

// URLScanRequest starts a live-URL scan
type URLScanRequest struct {
	URL string `json:"url"`
}

// WSScanRequest is the first message on the scan websocket. Exactly one of
// URL or Image (a data URI) is set.
type WSScanRequest struct {
	URL   string `json:"url,omitempty"`
	Image string `json:"image,omitempty"`
}

// ErrorResponse is a uniform error payload returned by the API
type ErrorResponse struct {
	Status  string             `json:"status"`
	Kind    model.ErrorKind    `json:"kind,omitempty"`
	Error   string             `json:"error"`
	Session *model.ScanSession `json:"session,omitempty"`
}

// Event types streamed over the scan websocket
const (
	EventPhase   = "phase"
	EventSession = "session"
	EventError   = "error"
)

// WSEvent is one message streamed over the scan websocket
type WSEvent struct {
	Type   string         `json:"type"`
	Phase  string         `json:"phase,omitempty"`
	Report *model.Report  `json:"report,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
}
