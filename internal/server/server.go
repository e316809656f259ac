// Package server exposes scans over HTTP and WebSocket.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ppiankov/darklens/internal/acquire"
	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
	"github.com/ppiankov/darklens/internal/render"
	"github.com/ppiankov/darklens/internal/session"
	"github.com/ppiankov/darklens/internal/worker"
)

// multipartOverhead is allowed on top of the image limit for form framing
const multipartOverhead = 1 << 20

const (
	defaultMaxConcurrentScans = 4
	defaultQueueDepth         = 16
)

const busyMessage = "The server is busy with other scans. Please try again shortly."

// Server is the HTTP + WebSocket API surface for darklens.
type Server struct {
	cfg      Config
	router   chi.Router
	upgrader websocket.Upgrader
	pool     *worker.Pool
	logger   logging.Logger
}

// NewServer creates a new Server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Acquirer == nil || cfg.Analyzer == nil {
		return nil, errors.New("server needs an acquirer and an analyzer")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewRenderer("dev", false)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = model.DefaultMaxUploadBytes
	}
	if cfg.MaxConcurrentScans <= 0 {
		cfg.MaxConcurrentScans = defaultMaxConcurrentScans
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStderrLogger("server", false)
	}

	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: logger,
		pool:   worker.NewPool(cfg.MaxConcurrentScans, cfg.QueueDepth),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict to configured origins once the web UI has a fixed host
				return true
			},
		},
	}

	s.routes()
	s.pool.Start()
	return s, nil
}

// Close stops the scan workers once in-flight scans return
func (s *Server) Close() {
	s.pool.Shutdown()
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/api/v1/scans/upload", s.optionsHandler("POST"))
	r.Options("/api/v1/scans/url", s.optionsHandler("POST"))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1/scans", func(r chi.Router) {
		r.Post("/upload", s.handleUploadScan)
		r.Post("/url", s.handleURLScan)
		r.Get("/ws", s.handleScanWS)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("http_request",
		logging.F("method", r.Method),
		logging.F("path", r.URL.Path),
		logging.F("content_length", r.ContentLength))

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // scans and websockets stream for longer than any fixed limit
	}
}

// newController builds a controller per request so concurrent scans never
// share session state
func (s *Server) newController(progress session.ProgressFunc) *session.Controller {
	opts := []session.Option{session.WithLogger(s.logger)}
	if progress != nil {
		opts = append(opts, session.WithProgress(progress))
	}
	return session.NewController(s.cfg.Acquirer, s.cfg.Analyzer, opts...)
}

// runScan executes scan on the worker pool and returns the final session
func (s *Server) runScan(ctx context.Context, scan func(context.Context) (model.ScanSession, error)) (model.ScanSession, error) {
	results := make(chan model.ScanSession, 1)
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		snapshot, err := scan(ctx)
		results <- snapshot
		return err
	})

	var snapshot model.ScanSession
	select {
	case snapshot = <-results:
	default:
	}
	return snapshot, err
}

func poolBusy(err error) bool {
	return errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrPoolClosed)
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Error: msg})
}

// writeScanError reports a classified scan failure
func writeScanError(w http.ResponseWriter, err error, snapshot model.ScanSession) {
	writeJSON(w, StatusFor(err), errorResponse(err, snapshot))
}

func errorResponse(err error, snapshot model.ScanSession) *ErrorResponse {
	if poolBusy(err) {
		return &ErrorResponse{Status: "error", Error: busyMessage}
	}
	resp := &ErrorResponse{
		Status: "error",
		Kind:   model.KindOf(err),
		Error:  session.Message(err),
	}
	if snapshot.ID != "" {
		resp.Session = &snapshot
	}
	return resp
}

// StatusFor maps a scan failure to an HTTP status
func StatusFor(err error) int {
	if poolBusy(err) {
		return http.StatusServiceUnavailable
	}
	switch model.KindOf(err) {
	case model.ErrUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case model.ErrFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrReadError, model.ErrInvalidURL:
		return http.StatusBadRequest
	case model.ErrCaptureBlocked:
		return http.StatusUnprocessableEntity
	case model.ErrCaptureTimeout:
		return http.StatusGatewayTimeout
	case model.ErrCaptureServiceError, model.ErrEmptyCapture, model.ErrCaptureFailed,
		model.ErrOffline, model.ErrOracleUnavailable, model.ErrMalformedResponse:
		return http.StatusBadGateway
	case model.ErrMissingCredentials:
		return http.StatusServiceUnavailable
	case model.ErrScanInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			scanErr := model.NewError(model.ErrFileTooLarge, "", err)
			writeScanError(w, scanErr, model.ScanSession{})
			return
		}
		s.logger.Warn("reading upload form", logging.Err(err))
		writeError(w, http.StatusBadRequest, "expected multipart form with a \"file\" field")
		return
	}
	defer func() { _ = file.Close() }()

	upload := acquire.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}

	controller := s.newController(nil)
	snapshot, err := s.runScan(r.Context(), func(ctx context.Context) (model.ScanSession, error) {
		return controller.StartFromUpload(ctx, upload)
	})
	s.respond(w, snapshot, err)
}

func (s *Server) handleURLScan(w http.ResponseWriter, r *http.Request) {
	var body URLScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding url scan body", logging.Err(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	controller := s.newController(nil)
	snapshot, err := s.runScan(r.Context(), func(ctx context.Context) (model.ScanSession, error) {
		return controller.StartFromURL(ctx, body.URL)
	})
	s.respond(w, snapshot, err)
}

func (s *Server) respond(w http.ResponseWriter, snapshot model.ScanSession, err error) {
	if err != nil {
		writeScanError(w, err, snapshot)
		return
	}
	report, err := s.cfg.Renderer.BuildReport(snapshot, s.cfg.Provider)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// WebSockets

func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	defer func() { _ = conn.Close() }()

	// base64 inflates the image by 4/3
	conn.SetReadLimit(s.cfg.MaxUploadBytes*4/3 + multipartOverhead)

	var req WSScanRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Warn("reading websocket scan request", logging.Err(err))
		_ = conn.WriteJSON(WSEvent{Type: EventError, Error: &ErrorResponse{Status: "error", Error: "invalid scan request"}})
		return
	}

	// The scan stops if the client goes away
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Progress arrives from a pool worker, so writes are serialized
	var writeMu sync.Mutex
	send := func(ev WSEvent) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(ev)
	}

	progress := func(phase string) {
		if err := send(WSEvent{Type: EventPhase, Phase: phase}); err != nil {
			cancel()
		}
	}
	controller := s.newController(progress)

	var snapshot model.ScanSession
	switch {
	case req.URL != "":
		snapshot, err = s.runScan(ctx, func(ctx context.Context) (model.ScanSession, error) {
			return controller.StartFromURL(ctx, req.URL)
		})
	case req.Image != "":
		var file acquire.File
		file, err = fileFromDataURI(req.Image)
		if err == nil {
			snapshot, err = s.runScan(ctx, func(ctx context.Context) (model.ScanSession, error) {
				return controller.StartFromUpload(ctx, file)
			})
		}
	default:
		err = model.NewError(model.ErrInvalidURL, "", errors.New("request needs url or image"))
	}

	if err != nil {
		_ = send(WSEvent{Type: EventError, Error: errorResponse(err, snapshot)})
		return
	}

	report, err := s.cfg.Renderer.BuildReport(snapshot, s.cfg.Provider)
	if err != nil {
		_ = send(WSEvent{Type: EventError, Error: &ErrorResponse{Status: "error", Error: err.Error()}})
		return
	}
	_ = send(WSEvent{Type: EventSession, Report: report})
}

func fileFromDataURI(uri string) (acquire.File, error) {
	mimeType, data, err := acquire.ParseDataURI(uri)
	if err != nil {
		return acquire.File{}, model.NewError(model.ErrReadError, "", fmt.Errorf("image: %w", err))
	}
	return acquire.File{
		Name:        "websocket-upload",
		ContentType: mimeType,
		Size:        int64(len(data)),
		Reader:      bytes.NewReader(data),
	}, nil
}
