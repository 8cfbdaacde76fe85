// Package server exposes the todo API and its push channel over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mcollina/githuman-sub002/internal/domain"
)

// eventTodos is broadcast after every successful mutation. Clients refetch
// on receipt instead of interpreting a payload.
const eventTodos = "todos"

type Server struct {
	repo   domain.Repository
	hub    *Hub
	logger *zap.Logger
	tracer trace.Tracer
}

func New(repo domain.Repository, hub *Hub, logger *zap.Logger) *Server {
	return &Server{
		repo:   repo,
		hub:    hub,
		logger: logger,
		tracer: otel.Tracer("todo-server"),
	}
}

// Router builds the full route table. Fixed paths are registered before the
// {id} routes so DELETE /todos/completed is not captured as an id.
func (s *Server) Router(middleware ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware...)

	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.handleHealth)
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.Handler())

	r.Methods(http.MethodGet).Path("/todos/stats").HandlerFunc(s.handleStats)
	r.Methods(http.MethodDelete).Path("/todos/completed").HandlerFunc(s.handleClearCompleted)
	r.Methods(http.MethodPost).Path("/todos/reorder").HandlerFunc(s.handleReorder)
	r.Methods(http.MethodGet).Path("/todos").HandlerFunc(s.handleList)
	r.Methods(http.MethodPost).Path("/todos").HandlerFunc(s.handleCreate)
	r.Methods(http.MethodPatch).Path("/todos/{id}").HandlerFunc(s.handleUpdate)
	r.Methods(http.MethodDelete).Path("/todos/{id}").HandlerFunc(s.handleDelete)
	r.Methods(http.MethodPost).Path("/todos/{id}/toggle").HandlerFunc(s.handleToggle)
	r.Methods(http.MethodPost).Path("/todos/{id}/move").HandlerFunc(s.handleMove)

	r.Methods(http.MethodGet).Path("/events").HandlerFunc(s.hub.HandleEvents)

	return r
}

type listResponse struct {
	Data   []*domain.Todo `json:"data"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "ListTodos")
	defer span.End()

	filter := &domain.ListFilter{}

	query := r.URL.Query()
	if reviewID := query.Get("reviewId"); reviewID != "" {
		filter.ReviewID = &reviewID
	}
	if completed := query.Get("completed"); completed != "" {
		value, err := strconv.ParseBool(completed)
		if err != nil {
			writeError(w, http.StatusBadRequest, "completed must be a boolean")
			return
		}
		filter.Completed = &value
	}
	if limit := query.Get("limit"); limit != "" {
		value, err := strconv.Atoi(limit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filter.Limit = value
	}
	if offset := query.Get("offset"); offset != "" {
		value, err := strconv.Atoi(offset)
		if err != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		filter.Offset = value
	}
	filter.Normalize()

	todos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.respondError(w, "failed to list todos", err)
		return
	}

	span.SetAttributes(attribute.Int64("total", total))

	writeJSON(w, http.StatusOK, listResponse{
		Data:   todos,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "GetStats")
	defer span.End()

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.respondError(w, "failed to compute stats", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type createRequest struct {
	Content  string  `json:"content"`
	ReviewID *string `json:"reviewId"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "CreateTodo")
	defer span.End()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	todo, err := domain.NewTodo(req.Content, req.ReviewID)
	if err != nil {
		s.respondError(w, "failed to create todo", err)
		return
	}

	if err := s.repo.Create(ctx, todo); err != nil {
		s.respondError(w, "failed to create todo", err)
		return
	}

	s.logger.Info("todo created", zap.String("todo_id", todo.ID))
	s.hub.Broadcast(eventTodos)

	writeJSON(w, http.StatusCreated, todo)
}

type updateRequest struct {
	Content   *string `json:"content"`
	Completed *bool   `json:"completed"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "UpdateTodo")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("todo.id", id))

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	todo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.respondError(w, "failed to retrieve todo", err)
		return
	}

	if req.Content != nil {
		if err := todo.UpdateContent(*req.Content); err != nil {
			s.respondError(w, "failed to update todo", err)
			return
		}
	}
	if req.Completed != nil {
		todo.SetCompleted(*req.Completed)
	}

	if err := s.repo.Update(ctx, todo); err != nil {
		s.respondError(w, "failed to update todo", err)
		return
	}

	s.logger.Info("todo updated", zap.String("todo_id", id))
	s.hub.Broadcast(eventTodos)

	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "DeleteTodo")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("todo.id", id))

	if err := s.repo.Delete(ctx, id); err != nil {
		s.respondError(w, "failed to delete todo", err)
		return
	}

	s.logger.Info("todo deleted", zap.String("todo_id", id))
	s.hub.Broadcast(eventTodos)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "ToggleTodo")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("todo.id", id))

	todo, err := s.repo.Toggle(ctx, id)
	if err != nil {
		s.respondError(w, "failed to toggle todo", err)
		return
	}

	s.hub.Broadcast(eventTodos)

	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "ClearCompleted")
	defer span.End()

	deleted, err := s.repo.ClearCompleted(ctx)
	if err != nil {
		s.respondError(w, "failed to clear completed todos", err)
		return
	}

	span.SetAttributes(attribute.Int64("deleted", deleted))

	s.logger.Info("completed todos cleared", zap.Int64("deleted", deleted))
	if deleted > 0 {
		s.hub.Broadcast(eventTodos)
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

type reorderRequest struct {
	OrderedIDs []string `json:"orderedIds"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "ReorderTodos")
	defer span.End()

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.OrderedIDs) == 0 {
		writeError(w, http.StatusBadRequest, "orderedIds must not be empty")
		return
	}

	span.SetAttributes(attribute.Int("ordered_ids", len(req.OrderedIDs)))

	updated, err := s.repo.Reorder(ctx, req.OrderedIDs)
	if err != nil {
		s.respondError(w, "failed to reorder todos", err)
		return
	}

	s.logger.Info("todos reordered", zap.Int64("updated", updated))
	s.hub.Broadcast(eventTodos)

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

type moveRequest struct {
	Position int `json:"position"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "MoveTodo")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("todo.id", id))

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	todo, err := s.repo.Move(ctx, id, req.Position)
	if err != nil {
		s.respondError(w, "failed to move todo", err)
		return
	}

	s.logger.Info("todo moved",
		zap.String("todo_id", id),
		zap.Int("position", req.Position),
	)
	s.hub.Broadcast(eventTodos)

	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondError maps domain errors to status codes; anything unexpected is
// logged and reported as a 500 without leaking internals.
func (s *Server) respondError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrContentTooLong),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrUnknownTodoID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTodoNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
