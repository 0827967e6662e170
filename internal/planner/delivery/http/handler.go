package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/internal/planner/usecase/command"
	"github.com/tair/fridge-planner/internal/planner/usecase/query"
	"github.com/tair/fridge-planner/pkg/logger"
)

// Commands groups the command handlers served over HTTP.
type Commands struct {
	CreateDish   *command.CreateDishHandler
	UpdateDish   *command.UpdateDishHandler
	DeleteDish   *command.DeleteDishHandler
	RestockDish  *command.RestockDishHandler
	AssignSlot   *command.AssignSlotHandler
	UnassignSlot *command.UnassignSlotHandler
}

// Queries groups the query handlers served over HTTP.
type Queries struct {
	ListDishes *query.ListDishesHandler
	GetPlan    *query.GetPlanHandler
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// PlannerHandler handles HTTP requests for the planner
type PlannerHandler struct {
	commands Commands
	queries  Queries
	health   HealthCheck

	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// Response is the envelope of every API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewPlannerHandler creates a new planner handler and registers its metrics
// with reg. health may be nil.
func NewPlannerHandler(commands Commands, queries Queries, health HealthCheck, reg prometheus.Registerer) *PlannerHandler {
	requestCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_http_requests_total",
			Help: "Total number of requests to the planner API",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_http_request_duration_seconds",
			Help:    "Duration of planner API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	reg.MustRegister(requestCounter, requestLatency)

	return &PlannerHandler{
		commands:       commands,
		queries:        queries,
		health:         health,
		requestCounter: requestCounter,
		requestLatency: requestLatency,
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *PlannerHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
	}
}

// ListDishes handles GET /api/dishes
func (h *PlannerHandler) ListDishes(w http.ResponseWriter, r *http.Request) {
	views, err := h.queries.ListDishes.Handle(r.Context(), query.ListDishesQuery{
		Filter: r.URL.Query().Get("filter"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: views})
}

// CreateDish handles POST /api/dishes
func (h *PlannerHandler) CreateDish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		Quantity     *int         `json:"quantity"`
		DefaultYield *int         `json:"defaultYield"`
		Tags         []string     `json:"tags"`
		Color        domain.Color `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	dish, err := h.commands.CreateDish.Handle(r.Context(), command.CreateDishCommand{
		ID:           req.ID,
		Name:         req.Name,
		Quantity:     req.Quantity,
		DefaultYield: req.DefaultYield,
		Tags:         req.Tags,
		Color:        req.Color,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Dish created successfully",
		Data:    dish,
	})
}

// UpdateDish handles PATCH /api/dishes/{id}
func (h *PlannerHandler) UpdateDish(w http.ResponseWriter, r *http.Request) {
	var patch domain.DishPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	dish, err := h.commands.UpdateDish.Handle(r.Context(), command.UpdateDishCommand{
		ID:    mux.Vars(r)["id"],
		Patch: patch,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Dish updated successfully",
		Data:    dish,
	})
}

// DeleteDish handles DELETE /api/dishes/{id}
func (h *PlannerHandler) DeleteDish(w http.ResponseWriter, r *http.Request) {
	err := h.commands.DeleteDish.Handle(r.Context(), command.DeleteDishCommand{ID: mux.Vars(r)["id"]})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Message: "Dish deleted successfully"})
}

// RestockDish handles POST /api/dishes/{id}/restock
func (h *PlannerHandler) RestockDish(w http.ResponseWriter, r *http.Request) {
	dish, err := h.commands.RestockDish.Handle(r.Context(), command.RestockDishCommand{ID: mux.Vars(r)["id"]})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Dish restocked successfully",
		Data:    dish,
	})
}

// GetPlan handles GET /api/plan
func (h *PlannerHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.queries.GetPlan.Handle(r.Context(), query.GetPlanQuery{Start: r.URL.Query().Get("start")})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: plan})
}

// AssignSlot handles PUT /api/slots/{date}/{meal}
func (h *PlannerHandler) AssignSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DishID     string `json:"dishId"`
		RejectPast bool   `json:"rejectPast"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	vars := mux.Vars(r)
	slot, err := h.commands.AssignSlot.Handle(r.Context(), command.AssignSlotCommand{
		Date:       vars["date"],
		Meal:       vars["meal"],
		DishID:     req.DishID,
		RejectPast: req.RejectPast,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Slot assigned successfully",
		Data:    slot,
	})
}

// UnassignSlot handles DELETE /api/slots/{id}
func (h *PlannerHandler) UnassignSlot(w http.ResponseWriter, r *http.Request) {
	dish, err := h.commands.UnassignSlot.Handle(r.Context(), command.UnassignSlotCommand{SlotID: mux.Vars(r)["id"]})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Slot removed successfully",
		Data:    dish,
	})
}

// HealthCheck handles GET /health
func (h *PlannerHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			logger.WithContext(r.Context()).Error().Err(err).Msg("Health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "planner-service",
	})
}

// RegisterRoutes registers all planner routes
func (h *PlannerHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/dishes", h.metricsMiddleware("/api/dishes", h.ListDishes)).Methods("GET")
	api.HandleFunc("/dishes", h.metricsMiddleware("/api/dishes", h.CreateDish)).Methods("POST")
	api.HandleFunc("/dishes/{id}", h.metricsMiddleware("/api/dishes/{id}", h.UpdateDish)).Methods("PATCH")
	api.HandleFunc("/dishes/{id}", h.metricsMiddleware("/api/dishes/{id}", h.DeleteDish)).Methods("DELETE")
	api.HandleFunc("/dishes/{id}/restock", h.metricsMiddleware("/api/dishes/{id}/restock", h.RestockDish)).Methods("POST")

	api.HandleFunc("/plan", h.metricsMiddleware("/api/plan", h.GetPlan)).Methods("GET")
	api.HandleFunc("/slots/{date}/{meal}", h.metricsMiddleware("/api/slots/{date}/{meal}", h.AssignSlot)).Methods("PUT")
	api.HandleFunc("/slots/{id}", h.metricsMiddleware("/api/slots/{id}", h.UnassignSlot)).Methods("DELETE")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

// statusFor maps use case errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotApplied):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidMeal),
		errors.Is(err, domain.ErrInvalidDish),
		errors.Is(err, domain.ErrPastDate),
		errors.Is(err, domain.ErrInvalidFilter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *PlannerHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		message = "Internal server error"
	}
	respondJSON(w, status, Response{Success: false, Error: message})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
