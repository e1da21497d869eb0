package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"council-assistant-backend/internal/assistant"
	"council-assistant-backend/internal/catalog"
	"council-assistant-backend/internal/config"
	"council-assistant-backend/internal/panel"
	"council-assistant-backend/internal/render"
	"council-assistant-backend/internal/store"
	"council-assistant-backend/internal/types"
)

// maxBodyBytes caps JSON request bodies; chat messages are short.
const maxBodyBytes = 8 << 10

// HealthChecker is implemented by storage backends that can be unreachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Server struct {
	router     *chi.Mux
	cfg        config.Config
	logger     *zap.Logger
	storage    store.SessionStorage
	health     HealthChecker
	transcript *store.Transcript
	registry   *panel.Registry
	deps       panel.Deps
}

func NewServer(cfg config.Config, storage store.SessionStorage, catalogs *catalog.Holder, logger *zap.Logger) (*Server, error) {
	if storage == nil {
		return nil, fmt.Errorf("session storage is required")
	}
	if catalogs == nil || catalogs.Get() == nil {
		return nil, fmt.Errorf("response catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	transcript := store.NewTranscript(storage, logger)
	s := &Server{
		router:     r,
		cfg:        cfg,
		logger:     logger,
		storage:    storage,
		transcript: transcript,
		registry:   panel.NewRegistry(cfg.PanelTTL),
		deps: panel.Deps{
			Resolver:   assistant.NewResolver(catalogs),
			Transcript: transcript,
			Logger:     logger,
			Options: panel.Options{
				TypingDelay:         cfg.TypingDelay,
				FocusDelay:          cfg.FocusDelay,
				SuggestionOpenDelay: cfg.SuggestionOpenDelay,
			},
		},
	}
	if hc, ok := storage.(HealthChecker); ok {
		s.health = hc
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	// Panels, one per page load
	s.router.Post("/api/panels", s.handleCreatePanel)
	s.router.Route("/api/panels/{panelID}", func(r chi.Router) {
		r.Post("/open", s.handleOpen)
		r.Post("/close", s.handleClose)
		r.Post("/messages", s.handleMessage)
		r.Post("/messages/stream", s.handleMessageStream)
		r.Post("/suggestions", s.handleSuggestion)
	})
	// Session transcript
	s.router.Get("/api/transcript", s.handleTranscript)
	s.router.Delete("/api/session", s.handleEndSession)

	if s.cfg.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
}

func (s *Server) Router() http.Handler { return s.router }

// Registry exposes the live panels.
func (s *Server) Registry() *panel.Registry { return s.registry }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Warn("storage health check failed", zap.Error(err))
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreatePanel(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	f := newFeed()
	c := panel.New(uuid.NewString(), sid, s.deps, f)
	s.registry.Add(c)

	w.Header().Set("X-Session-Id", sid)
	s.writeJSON(w, http.StatusCreated, types.CreatePanelResponse{
		PanelID:         c.ID(),
		SessionID:       sid,
		HasConversation: s.transcript.HasConversation(r.Context(), sid),
	})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	c, f, ok := s.lookupPanel(w, r)
	if !ok {
		return
	}
	c.Open(r.Context())
	s.writeJSON(w, http.StatusOK, panelResponse(c, f))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	c, f, ok := s.lookupPanel(w, r)
	if !ok {
		return
	}
	var req types.CloseRequest
	if !s.decodeBody(w, r, &req, true) {
		return
	}
	reason, err := parseCloseReason(req.Reason)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.Close(reason)
	s.writeJSON(w, http.StatusOK, panelResponse(c, f))
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	c, f, ok := s.lookupPanel(w, r)
	if !ok {
		return
	}
	var req types.MessageRequest
	if !s.decodeBody(w, r, &req, false) {
		return
	}
	ex, err := c.Submit(r.Context(), req.Message)
	s.writeExchange(w, c, f, ex, err)
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	c, f, ok := s.lookupPanel(w, r)
	if !ok {
		return
	}
	var req types.SuggestionRequest
	if !s.decodeBody(w, r, &req, false) {
		return
	}
	ex, err := c.Suggest(r.Context(), req.Query)
	s.writeExchange(w, c, f, ex, err)
}

// handleMessageStream sends the panel events of one exchange as server-sent
// events while the reply is being "typed", then a final done event.
func (s *Server) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	c, f, ok := s.lookupPanel(w, r)
	if !ok {
		return
	}
	var req types.MessageRequest
	if !s.decodeBody(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if c.State() != panel.Open {
		s.writeError(w, http.StatusConflict, panel.ErrClosed.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	type result struct {
		ex  *panel.Exchange
		err error
	}
	done := make(chan result, 1)
	go func() {
		ex, err := c.Submit(r.Context(), req.Message)
		done <- result{ex: ex, err: err}
	}()

	for {
		select {
		case <-f.notify:
			s.writeEvents(w, f.drain())
			flusher.Flush()
		case res := <-done:
			s.writeEvents(w, f.drain())
			if res.err != nil {
				s.writeSSE(w, "error", types.ErrorResponse{Error: res.err.Error()})
			} else if res.ex != nil {
				s.writeSSE(w, "done", types.ExchangeResponse{
					PanelResponse: panelResponse(c, f),
					User:          res.ex.User,
					Reply:         res.ex.Reply,
				})
			}
			flusher.Flush()
			return
		}
	}
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r)
	entries := []store.Entry{}
	if sid != "" {
		entries = s.transcript.Load(r.Context(), sid)
	}
	s.writeJSON(w, http.StatusOK, types.TranscriptResponse{
		SessionID: sid,
		Entries:   entries,
		HTML:      render.Bubbles(entries),
	})
}

// handleEndSession ends the browsing session early: the stored items go and
// the cookie is dropped, as when the browser session ends.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r)
	if sid != "" {
		if err := s.storage.Clear(r.Context(), sid); err != nil {
			s.logger.Error("session clear failed", zap.String("session", sid), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to end session")
			return
		}
		s.logger.Info("session ended", zap.String("session", sid))
	}
	ClearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// lookupPanel resolves the panel named in the URL for the caller's session,
// writing a 404 when it is unknown, expired or owned by another session.
func (s *Server) lookupPanel(w http.ResponseWriter, r *http.Request) (*panel.Controller, *feed, bool) {
	sid := getSessionID(r)
	if sid == "" {
		s.writeError(w, http.StatusNotFound, panel.ErrNotFound.Error())
		return nil, nil, false
	}
	c, err := s.registry.Get(chi.URLParam(r, "panelID"), sid)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return nil, nil, false
	}
	f, ok := c.Renderer().(*feed)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "panel has no event feed")
		return nil, nil, false
	}
	return c, f, true
}

func (s *Server) writeExchange(w http.ResponseWriter, c *panel.Controller, f *feed, ex *panel.Exchange, err error) {
	switch {
	case errors.Is(err, panel.ErrClosed), errors.Is(err, panel.ErrSuperseded):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Debug("exchange abandoned", zap.String("panel", c.ID()), zap.Error(err))
		s.writeError(w, http.StatusRequestTimeout, "request cancelled")
	case err != nil:
		s.logger.Error("exchange failed", zap.String("panel", c.ID()), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "exchange failed")
	case ex == nil:
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeJSON(w, http.StatusOK, types.ExchangeResponse{
			PanelResponse: panelResponse(c, f),
			User:          ex.User,
			Reply:         ex.Reply,
		})
	}
}

func panelResponse(c *panel.Controller, f *feed) types.PanelResponse {
	return types.PanelResponse{
		PanelID:      c.ID(),
		State:        c.State().String(),
		Conversation: c.Conversation().String(),
		Events:       f.drain(),
	}
}

func parseCloseReason(s string) (panel.CloseReason, error) {
	switch r := panel.CloseReason(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return panel.CloseButton, nil
	case panel.CloseButton, panel.CloseOutside, panel.CloseEscape:
		return r, nil
	default:
		return "", fmt.Errorf("unknown close reason %q", s)
	}
}

func (s *Server) writeEvents(w http.ResponseWriter, events []types.Event) {
	for _, e := range events {
		s.writeSSE(w, e.Type, e)
	}
}

func (s *Server) writeSSE(w http.ResponseWriter, event string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("event encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
}

// decodeBody reads a JSON request body of at most maxBodyBytes into v,
// writing the error response itself when it cannot.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return true
	case allowEmpty && errors.Is(err, io.EOF):
		return true
	case errors.As(err, &tooLarge):
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
	}
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

// getSessionID reads the session ID from the cookie, falling back to the
// X-Session-Id header. Anything that is not a UUID is ignored; UUIDs in
// other spellings (urn:uuid:, braces, upper case) come back canonical.
func getSessionID(r *http.Request) string {
	if sid, err := GetSessionCookie(r); err == nil {
		if id := canonicalSessionID(sid); id != "" {
			return id
		}
	}
	return canonicalSessionID(r.Header.Get("X-Session-Id"))
}

func canonicalSessionID(sid string) string {
	if sid == "" {
		return ""
	}
	u, err := uuid.Parse(sid)
	if err != nil {
		return ""
	}
	return u.String()
}

// getOrCreateSessionID gets the existing session ID or starts a new session,
// setting the cookie.
func (s *Server) getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = uuid.NewString()
		s.logger.Debug("session created", zap.String("session", sid), zap.String("path", r.URL.Path))
		SetSessionCookie(w, r, sid)
	}
	return sid
}

// RunJanitor expires idle panels and sessions every interval until ctx is
// done.
func (s *Server) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("janitor interval must be positive")
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Server) sweep(ctx context.Context) {
	panels := s.registry.Sweep()
	var sessions int64
	switch st := s.storage.(type) {
	case *store.MemoryStore:
		sessions = int64(st.Sweep())
	case *store.FileStore:
		n, err := st.Prune(s.cfg.SessionTTL)
		if err != nil {
			s.logger.Warn("session file prune failed", zap.Error(err))
		}
		sessions = int64(n)
	case *store.DatabaseStore:
		n, err := st.Prune(ctx, s.cfg.SessionTTL)
		if err != nil {
			s.logger.Warn("session row prune failed", zap.Error(err))
		}
		sessions = n
	}
	if panels > 0 || sessions > 0 {
		s.logger.Info("expired idle state", zap.Int("panels", panels), zap.Int64("sessions", sessions))
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
