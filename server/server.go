package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"latex_doc_editor/journal"
	"latex_doc_editor/keypool"
	"latex_doc_editor/layout"
	"latex_doc_editor/workflow"
)

const (
	defaultRequestTimeout = 60 * time.Second
	maxBodyBytes          = 8 << 20
)

// Journal is the read side of the edit journal.
type Journal interface {
	List(ctx context.Context, sessionID string, limit int) ([]journal.Entry, error)
	Stats(ctx context.Context) ([]journal.ActionStat, error)
}

type Server struct {
	editor  *workflow.Editor
	budget  layout.Budget
	pool    *keypool.Pool
	journal Journal
	store   *sessionStore
	logger  *zap.Logger
	timeout time.Duration
}

type Option func(*Server)

// WithBudget sets the page budget used by /api/fit when the request names none.
func WithBudget(b layout.Budget) Option {
	return func(s *Server) { s.budget = b }
}

func WithPool(p *keypool.Pool) Option {
	return func(s *Server) { s.pool = p }
}

func WithJournal(j Journal) Option {
	return func(s *Server) { s.journal = j }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// session 按 id 保存在内存里，进程退出即丢失。
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*workflow.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*workflow.Session)}
}

func (s *sessionStore) set(id string, sess *workflow.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) get(id string) (*workflow.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func New(ed *workflow.Editor, opts ...Option) (*Server, error) {
	if ed == nil {
		return nil, errors.New("workflow editor required")
	}
	s := &Server{
		editor:  ed,
		budget:  layout.TwoColumn,
		store:   newStore(),
		logger:  zap.NewNop(),
		timeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Post("/edit", s.handleEdit)
		r.Post("/fit", s.handleFit)
		r.Get("/stats", s.handleStats)

		r.Post("/sessions", s.handleSessionCreate)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Post("/edits", s.handleSessionEdit)
			r.Get("/edits", s.handleSessionJournal)
		})
	})
	return r
}

// --- Handlers ---

type resolveReq struct {
	Instruction string `json:"instruction"`
}

type editReq struct {
	Document     string   `json:"document"`
	Instruction  string   `json:"instruction"`
	Instructions []string `json:"instructions"`
}

// list 合并单条与批量两种写法。
func (r editReq) list() []string {
	if r.Instruction != "" {
		return append([]string{r.Instruction}, r.Instructions...)
	}
	return r.Instructions
}

type editResp struct {
	Document string            `json:"document"`
	Results  []workflow.Result `json:"results"`
}

type fitReq struct {
	Table       string `json:"table"`
	Document    string `json:"document"`
	Profile     string `json:"profile"`
	Positioning *bool  `json:"positioning"`
}

type fitResp struct {
	Budget   layout.Budget            `json:"budget"`
	Plans    []layout.ColumnWidthPlan `json:"plans"`
	Table    string                   `json:"table,omitempty"`
	Document string                   `json:"document,omitempty"`
}

type sessionCreateReq struct {
	Document string `json:"document"`
}

type sessionResp struct {
	SessionID string          `json:"session_id"`
	Document  string          `json:"document"`
	History   []workflow.Turn `json:"history"`
	CreatedAt time.Time       `json:"created_at"`
}

type statsResp struct {
	Credentials []keypool.Stat       `json:"credentials"`
	Limited     int                  `json:"limited"`
	Actions     []journal.ActionStat `json:"actions"`
	Sessions    int                  `json:"sessions"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveReq
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		writeError(w, http.StatusBadRequest, errors.New("instruction required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	writeJSON(w, http.StatusOK, s.editor.Resolve(ctx, req.Instruction))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editReq
	if !decode(w, r, &req) {
		return
	}
	instructions := req.list()
	if len(instructions) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("instruction required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	doc, results := s.editor.Batch(ctx, req.Document, instructions)
	writeJSON(w, http.StatusOK, editResp{Document: doc, Results: results})
}

func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	var req fitReq
	if !decode(w, r, &req) {
		return
	}
	b := s.budget
	if req.Profile != "" {
		parsed, err := layout.ParseProfile(req.Profile)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		b = parsed.WithPositioning(s.budget.Positioning)
	}
	if req.Positioning != nil {
		b = b.WithPositioning(*req.Positioning)
	}

	switch {
	case req.Table != "":
		plan := layout.Fit(req.Table, b)
		table, _ := layout.RewriteColumnSpec(req.Table, plan)
		writeJSON(w, http.StatusOK, fitResp{Budget: b, Plans: []layout.ColumnWidthPlan{plan}, Table: table})
	case req.Document != "":
		doc, plans := layout.FitDocument(req.Document, b)
		writeJSON(w, http.StatusOK, fitResp{Budget: b, Plans: plans, Document: doc})
	default:
		writeError(w, http.StatusBadRequest, errors.New("table or document required"))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResp{Sessions: s.store.len()}
	if s.pool != nil {
		resp.Credentials = s.pool.Stats()
		resp.Limited = s.pool.Limited()
	}
	if s.journal != nil {
		actions, err := s.journal.Stats(r.Context())
		if err != nil {
			s.logger.Error("journal stats failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Actions = actions
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req sessionCreateReq
	if !decode(w, r, &req) {
		return
	}
	id := uuid.NewString()
	sess := workflow.NewSession(id, req.Document, s.editor)
	s.store.set(id, sess)
	s.logger.Info("session created", zap.String("session", id), zap.Int("bytes", len(req.Document)))
	writeJSON(w, http.StatusCreated, toResp(sess.Snapshot()))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	sess, ok := s.store.get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
	}
	return sess, ok
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResp(sess.Snapshot()))
}

func (s *Server) handleSessionEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req editReq
	if !decode(w, r, &req) {
		return
	}
	instructions := req.list()
	if len(instructions) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("instruction required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	results := sess.Batch(ctx, instructions)
	writeJSON(w, http.StatusOK, editResp{Document: sess.Document(), Results: results})
}

func (s *Server) handleSessionJournal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.journal == nil {
		writeJSON(w, http.StatusOK, []journal.Entry{})
		return
	}
	entries, err := s.journal.List(r.Context(), sess.ID, 0)
	if err != nil {
		s.logger.Error("journal list failed", zap.String("session", sess.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func toResp(snap workflow.Snapshot) sessionResp {
	return sessionResp{SessionID: snap.ID, Document: snap.Document, History: snap.History, CreatedAt: snap.CreatedAt}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)))
	})
}
