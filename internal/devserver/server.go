// Package devserver is a local stand-in for the todo REST backend.
// It follows the production handler's contract: server-assigned UUIDs,
// 201 on create, 400 for an empty update, 404 for unknown ids and
// 204 on delete whether or not the id existed.
package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/idilsaglam/tada-remote/internal/model"
	"github.com/idilsaglam/tada-remote/internal/store/jsonstore"
)

// Options configure a Server. The zero value is an in-memory server.
type Options struct {
	DataFile string // optional JSON table, loaded at start and rewritten on every change
	Logger   *log.Logger
	Registry *prometheus.Registry // served on /metrics; a fresh one if nil

	// Test hooks.
	Now   func() time.Time
	NewID func() string
}

type Server struct {
	mu    sync.Mutex
	items []model.Todo

	dataFile string
	log      *log.Logger
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	now      func() time.Time
	newID    func() string
}

func New(opts Options) (*Server, error) {
	s := &Server{
		items:    []model.Todo{},
		dataFile: opts.DataFile,
		log:      opts.Logger,
		reg:      opts.Registry,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.log == nil {
		s.log = log.New(io.Discard)
	}
	if s.reg == nil {
		s.reg = prometheus.NewRegistry()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tada_devserver_requests_total",
		Help: "Requests served by the dev server.",
	}, []string{"method", "code"})
	if err := s.reg.Register(s.requests); err != nil {
		return nil, err
	}

	if s.dataFile != "" {
		items, err := jsonstore.Load(s.dataFile)
		if err != nil {
			return nil, err
		}
		s.items = items
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.instrument)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/todos", s.listTodos)
	r.Post("/todos", s.createTodo)
	r.Get("/todos/{todoId}", s.getTodo)
	r.Put("/todos/{todoId}", s.updateTodo)
	r.Delete("/todos/{todoId}", s.deleteTodo)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status, "took", time.Since(start))
	})
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]model.Todo, len(s.items))
	copy(out, s.items)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "todoId")
	s.mu.Lock()
	i := s.indexOf(id)
	var t model.Todo
	if i >= 0 {
		t = s.items[i]
	}
	s.mu.Unlock()
	if i < 0 {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type createRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Title == nil {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	t := model.Todo{
		TodoID:    s.newID(),
		Title:     *req.Title,
		Completed: false,
		CreatedAt: model.Timestamp{Time: s.now().UTC()},
	}
	if req.Description != nil {
		t.Description = *req.Description
	}

	s.mu.Lock()
	next := make([]model.Todo, 0, len(s.items)+1)
	next = append(append(next, s.items...), t)
	err := s.commitLocked(next)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("persist failed", "op", "create", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "todoId")
	var p model.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if p.IsEmpty() {
		writeError(w, http.StatusBadRequest, "No valid fields to update")
		return
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	t := p.Apply(s.items[i])
	next := make([]model.Todo, len(s.items))
	copy(next, s.items)
	next[i] = t
	err := s.commitLocked(next)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("persist failed", "op", "update", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "todoId")
	s.mu.Lock()
	var err error
	if i := s.indexOf(id); i >= 0 {
		next := make([]model.Todo, 0, len(s.items)-1)
		next = append(append(next, s.items[:i]...), s.items[i+1:]...)
		err = s.commitLocked(next)
	}
	s.mu.Unlock()
	if err != nil {
		s.log.Error("persist failed", "op", "delete", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Len reports how many records the server holds.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Server) indexOf(id string) int {
	for i, t := range s.items {
		if t.TodoID == id {
			return i
		}
	}
	return -1
}

// commitLocked writes next to the data file and only then makes it the
// current table. On error the table is left as it was.
func (s *Server) commitLocked(next []model.Todo) error {
	if s.dataFile != "" {
		if err := jsonstore.Save(s.dataFile, next); err != nil {
			return err
		}
	}
	s.items = next
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
