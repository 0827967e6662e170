package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/fridge-planner/internal/planner/domain"
	"github.com/tair/fridge-planner/internal/planner/store"
	"github.com/tair/fridge-planner/internal/planner/usecase/command"
	"github.com/tair/fridge-planner/internal/planner/usecase/query"
)

type testServer struct {
	handler http.Handler
	store   *store.Store
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T, health HealthCheck) *testServer {
	t.Helper()
	st := store.New("u1", store.Discard, store.WithLogger(zerolog.Nop()))
	resolver := domain.NewResolver(zerolog.Nop())
	reg := prometheus.NewRegistry()

	h := NewPlannerHandler(
		Commands{
			CreateDish:   command.NewCreateDishHandler(st),
			UpdateDish:   command.NewUpdateDishHandler(st),
			DeleteDish:   command.NewDeleteDishHandler(st),
			RestockDish:  command.NewRestockDishHandler(st),
			AssignSlot:   command.NewAssignSlotHandler(st),
			UnassignSlot: command.NewUnassignSlotHandler(st),
		},
		Queries{
			ListDishes: query.NewListDishesHandler(st, resolver, query.NewFilterCache()),
			GetPlan:    query.NewGetPlanHandler(st, resolver),
		},
		health,
		reg,
	)

	cfg := DefaultMiddlewareConfig()
	cfg.EnableTracing = false
	return &testServer{handler: NewRouter(h, cfg, reg), store: st, reg: reg}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestCreateDishEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec, resp := s.do(t, http.MethodPost, "/api/dishes", `{"id":"a","name":"Chili","quantity":2,"tags":["spicy"],"color":"green"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	d, ok := s.store.Dish("a")
	require.True(t, ok)
	assert.Equal(t, 2, d.DefaultYield)

	rec, resp = s.do(t, http.MethodPost, "/api/dishes", `{"id":"a","name":"Chili"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = s.do(t, http.MethodPost, "/api/dishes", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = s.do(t, http.MethodPost, "/api/dishes", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", resp.Error)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestListDishesEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	require.True(t, s.store.CreateDish(domain.Dish{ID: "a", Name: "Chili", Quantity: 2, Tags: []string{"spicy"}}))
	require.True(t, s.store.CreateDish(domain.Dish{ID: "b", Name: "Soup", Quantity: 0}))

	rec, resp := s.do(t, http.MethodGet, "/api/dishes?filter=quantity+%3E+0", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "a", first["id"])
	assert.Contains(t, first, "shade")

	rec, _ = s.do(t, http.MethodGet, "/api/dishes?filter=quantity+%3E", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDishLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	require.True(t, s.store.CreateDish(domain.Dish{ID: "a", Name: "Chili", Quantity: 0, DefaultYield: 3}))

	rec, _ := s.do(t, http.MethodPatch, "/api/dishes/a", `{"name":"Chili sin carne"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	d, _ := s.store.Dish("a")
	assert.Equal(t, "Chili sin carne", d.Name)

	rec, _ = s.do(t, http.MethodPost, "/api/dishes/a/restock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	d, _ = s.store.Dish("a")
	assert.Equal(t, 3, d.Quantity)

	rec, _ = s.do(t, http.MethodDelete, "/api/dishes/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/dishes/a", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = s.do(t, http.MethodPatch, "/api/dishes/a", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlotEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	require.True(t, s.store.CreateDish(domain.Dish{ID: "a", Name: "Chili", Quantity: 1}))

	rec, _ := s.do(t, http.MethodPut, "/api/slots/2024-01-10/snack", `{"dishId":"a"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, http.MethodPut, "/api/slots/2024-01-10/lunch", `{"dishId":"a","rejectPast":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "2024 is in the past")

	rec, resp := s.do(t, http.MethodPut, "/api/slots/2024-01-10/lunch", `{"dishId":"a"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	slot := resp.Data.(map[string]interface{})
	assert.Equal(t, "Chili", slot["dishName"])

	rec, _ = s.do(t, http.MethodPut, "/api/slots/2024-01-11/dinner", `{"dishId":"a"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/slots/"+slot["id"].(string), "")
	require.Equal(t, http.StatusOK, rec.Code)
	d, _ := s.store.Dish("a")
	assert.Equal(t, 1, d.Quantity)
}

func TestPlanEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec, resp := s.do(t, http.MethodGet, "/api/plan?start=2024-01-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	plan := resp.Data.(map[string]interface{})
	assert.Equal(t, "2024-01-08", plan["start"])
	assert.Len(t, plan["days"], domain.PlanningDays)

	rec, _ = s.do(t, http.MethodGet, "/api/plan?start=soon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	healthy := true
	s := newTestServer(t, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("database unreachable")
	})

	rec, _ := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	healthy = false
	rec, _ = s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.do(t, http.MethodGet, "/api/dishes", "")
	count, err := testutil.GatherAndCount(s.reg, "planner_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metrics := httptest.NewRecorder()
	s.handler.ServeHTTP(metrics, req)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "planner_http_request_duration_seconds")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrNotApplied))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrPastDate))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
