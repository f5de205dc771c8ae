// Package api exposes generated read/write REST endpoints for an
// allow-list of collections over a connected store handle. It is glue
// around the model runtime and is consumed by nothing in the core.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/vellumdb/vellum/document"
	"github.com/vellumdb/vellum/model"
	"github.com/vellumdb/vellum/store"
	"github.com/vellumdb/vellum/validation"
)

// Server serves generated endpoints for allow-listed collections.
type Server struct {
	db    store.Database
	allow map[string]struct{}
	log   *zap.SugaredLogger

	mu     sync.Mutex
	models map[string]*model.Model
}

// NewServer creates a server over a store handle. Only collections in
// the allow-list are exposed; everything else is 404.
func NewServer(db store.Database, collections []string, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	allow := make(map[string]struct{}, len(collections))
	for _, name := range collections {
		allow[name] = struct{}{}
	}
	return &Server{
		db:     db,
		allow:  allow,
		log:    log,
		models: make(map[string]*model.Model),
	}
}

// Router builds the chi router:
//
//	GET    /{collection}        list (page, page_size query params)
//	POST   /{collection}        create
//	GET    /{collection}/{id}   fetch
//	PUT    /{collection}/{id}   replace
//	DELETE /{collection}/{id}   delete
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Route("/{collection}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleReplace)
		r.Delete("/{id}", s.handleDelete)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		next.ServeHTTP(w, r)
		s.log.Infow("request",
			"id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// modelFor resolves (and caches) the model for an allow-listed
// collection.
func (s *Server) modelFor(ctx context.Context, name string) (*model.Model, error) {
	if _, ok := s.allow[name]; !ok {
		return nil, errNotExposed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.models[name]; ok {
		return m, nil
	}
	m, err := model.GetModel(ctx, s.db.Collection(name))
	if err != nil {
		return nil, err
	}
	s.models[name] = m
	return m, nil
}

func (s *Server) requestModel(r *http.Request) (*model.Model, error) {
	return s.modelFor(r.Context(), chi.URLParam(r, "collection"))
}

var errNotExposed = errors.New("collection not exposed")

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	m, err := s.requestModel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 50)
	result, err := m.Paginate(r.Context(), map[string]interface{}{}, page, pageSize)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]map[string]interface{}, 0, len(result.Items))
	for _, inst := range result.Items {
		items = append(items, inst.ToMap())
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":       items,
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total":       result.Total,
		"total_pages": result.TotalPages,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.requestModel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	inst, err := m.FindByID(r.Context(), parseID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if inst == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, inst.ToMap())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	m, err := s.requestModel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	inst := m.FromMap(body)
	if err := inst.Save(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, inst.ToMap())
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	m, err := s.requestModel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	body, err := decodeBody(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	inst := m.FromMap(body)
	inst.SetRaw(model.IDField, parseID(chi.URLParam(r, "id")))
	if err := inst.Save(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inst.ToMap())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	m, err := s.requestModel(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := m.DeleteByID(r.Context(), parseID(chi.URLParam(r, "id"))); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var vErr *validation.Error
	var uErr *document.UsageError
	var missing *model.SchemaMissingError

	switch {
	case errors.Is(err, errNotExposed):
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "not found"})
	case errors.As(err, &vErr):
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "validation_failed",
			"violations": vErr.Violations,
		})
	case errors.As(err, &uErr):
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": uErr.Error()})
	case errors.As(err, &missing):
		s.writeJSON(w, http.StatusConflict, map[string]interface{}{"error": missing.Error()})
	default:
		s.log.Errorw("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorw("encode response", "error", err)
	}
}

func decodeBody(r *http.Request) (map[string]interface{}, error) {
	defer r.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

// parseID resolves a path identifier: a valid ObjectID hex string
// becomes an ObjectID, anything else stays a string.
func parseID(raw string) interface{} {
	if id, err := primitive.ObjectIDFromHex(raw); err == nil {
		return id
	}
	return raw
}

func queryInt(r *http.Request, name string, fallback int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
