package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"expediente/internal/expediente/analysis"
	"expediente/internal/expediente/session"
	"expediente/internal/vigencia"
	id "expediente/pkg/domain"
	dErrors "expediente/pkg/domain-errors"
	"expediente/pkg/platform/httputil"
	"expediente/pkg/platform/sentinel"
	"expediente/pkg/requestcontext"
)

// Analyzer runs the analysis pipeline over a set of raw documents.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// SessionStore persists expedientes between uploads.
type SessionStore interface {
	Create(ctx context.Context, s *session.AnalysisSession) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*session.AnalysisSession, error)
	Execute(ctx context.Context, sessionID id.SessionID, fn func(*session.AnalysisSession) error) (*session.AnalysisSession, error)
}

// RulesTable exposes the jurisdiction rules the vigencia engine applies.
type RulesTable interface {
	Rules() []vigencia.Rule
	Overrides(state vigencia.State) []vigencia.Override
}

// Handler wires expediente endpoints to the analysis service and session store.
type Handler struct {
	analyzer Analyzer
	sessions SessionStore
	rules    RulesTable
	logger   *slog.Logger
}

// New constructs an expediente handler with its dependencies.
func New(analyzer Analyzer, sessions SessionStore, rules RulesTable, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		analyzer: analyzer,
		sessions: sessions,
		rules:    rules,
		logger:   logger,
	}
}

// Register mounts expediente endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/expedientes", h.HandleCreate)
	r.Post("/expedientes/{id}/files", h.HandleAddFiles)
	r.Get("/expedientes/{id}", h.HandleGet)
	r.Post("/expedientes/{id}/analyze", h.HandleAnalyzeSession)
	r.Post("/analyze", h.HandleAnalyze)
	r.Get("/vigencia/states", h.HandleStates)
}

// HandleCreate handles POST /expedientes.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FilesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	s, err := session.New(id.NewSessionID(), req.Files, requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.sessions.Create(ctx, s); err != nil {
		h.logger.ErrorContext(ctx, "failed to create expediente",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, storeError(err))
		return
	}

	h.logger.InfoContext(ctx, "expediente created",
		"request_id", requestID,
		"session_id", s.ID,
		"files", len(s.Files),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSession(s))
}

// HandleAddFiles handles POST /expedientes/{id}/files.
func (h *Handler) HandleAddFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FilesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	now := requestcontext.Now(ctx)
	s, err := h.sessions.Execute(ctx, sessionID, func(s *session.AnalysisSession) error {
		return s.AddFiles(req.Files, now)
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to add files",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, storeError(err))
		return
	}

	h.logger.InfoContext(ctx, "expediente files added",
		"request_id", requestID,
		"session_id", sessionID,
		"added", len(req.Files),
		"files", len(s.Files),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSession(s))
}

// HandleGet handles GET /expedientes/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	s, err := h.sessions.FindByID(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, storeError(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(s))
}

// HandleAnalyzeSession handles POST /expedientes/{id}/analyze.
func (h *Handler) HandleAnalyzeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	opts := AnalyzeOptions{
		AsOf:         r.URL.Query().Get("as_of"),
		ReturnPolicy: r.URL.Query().Get("return_policy"),
	}
	if err := opts.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	s, err := h.sessions.FindByID(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, storeError(err))
		return
	}

	ctx = requestcontext.WithSessionID(ctx, sessionID)
	res, ok := h.analyze(ctx, w, opts.request(s.Files))
	if !ok {
		return
	}
	if res.Success {
		at := requestcontext.Now(ctx)
		if _, err := h.sessions.Execute(ctx, sessionID, func(s *session.AnalysisSession) error {
			s.RecordAnalysis(res.Metadata.AnalysisID, at)
			return nil
		}); err != nil {
			h.logger.WarnContext(ctx, "failed to record analysis on expediente",
				"request_id", requestID,
				"session_id", sessionID,
				"error", err,
			)
		}
	}
	writeResult(w, res)
}

// HandleAnalyze handles POST /analyze for callers that keep no session.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AnalyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, ok := h.analyze(ctx, w, req.AnalyzeOptions.request(req.Files))
	if !ok {
		return
	}
	writeResult(w, res)
}

// HandleStates handles GET /vigencia/states.
func (h *Handler) HandleStates(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromRules(h.rules))
}

func (h *Handler) analyze(ctx context.Context, w http.ResponseWriter, req analysis.Request) (*analysis.Result, bool) {
	start := time.Now()
	res, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "expediente analysis failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		httputil.WriteError(w, err)
		return nil, false
	}
	return res, true
}

// writeResult returns the full result body in both cases; a structural
// failure is reported with 422 so clients can still read metadata.
func writeResult(w http.ResponseWriter, res *analysis.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSON(w, status, res)
}

func storeError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "expediente not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeConflict, "expediente already exists")
	default:
		return err
	}
}
