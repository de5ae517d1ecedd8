package interfaces_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"swiftlogistics/internal/service/order/application"
	"swiftlogistics/internal/service/order/domain"
	"swiftlogistics/internal/service/order/domain/port"
	"swiftlogistics/internal/service/order/interfaces"
)

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func (r *memOrderRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *memOrderRepo) CountByStatus(_ context.Context) (map[domain.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.Status]int64)
	for _, order := range r.orders {
		counts[order.Status]++
	}
	return counts, nil
}

type memUpdateRepo struct {
	mu      sync.Mutex
	updates []*domain.DeliveryUpdate
}

func (r *memUpdateRepo) Append(_ context.Context, update *domain.DeliveryUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
	return nil
}

func (r *memUpdateRepo) ListByOrder(_ context.Context, orderID string) ([]*domain.DeliveryUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.DeliveryUpdate
	for _, u := range r.updates {
		if u.OrderID == orderID {
			out = append(out, u)
		}
	}
	return out, nil
}

type stubSystems struct{}

func (stubSystems) RegisterOrder(_ context.Context, order *domain.Order) (port.RegistrationResult, error) {
	return port.RegistrationResult{Reference: "CMS_" + order.ID}, nil
}

func (stubSystems) RegisterPackage(_ context.Context, order *domain.Order) (port.RegistrationResult, error) {
	return port.RegistrationResult{Reference: "PKG_" + order.ID}, nil
}

func (stubSystems) UpdatePackageStatus(_ context.Context, _ string, _ domain.Status) error {
	return nil
}

func (stubSystems) RegisterDeliveryPoint(_ context.Context, order *domain.Order) (port.RegistrationResult, error) {
	return port.RegistrationResult{Reference: "DP_" + order.ID}, nil
}

func (stubSystems) DriverRoute(_ context.Context, driverID string) (map[string]interface{}, error) {
	return map[string]interface{}{"driver_id": driverID, "stops": []string{}}, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(_ context.Context, _ string, _ domain.EventPayload) error { return nil }

type stubPusher struct{}

func (stubPusher) PushToClient(_ context.Context, _ string, _ domain.LiveMessage) error { return nil }

type stubLocker struct{}

func (stubLocker) Acquire(_ context.Context, _ string) (func(), error) { return func() {}, nil }

func newTestServer(t *testing.T) (*httptest.Server, *memOrderRepo) {
	t.Helper()
	repo := &memOrderRepo{orders: make(map[string]*domain.Order)}
	svc := application.NewOrderApplicationService(
		repo, &memUpdateRepo{}, noop.NewTracerProvider().Tracer("test"),
		stubSystems{}, stubSystems{}, stubSystems{}, stubPublisher{}, stubPusher{}, stubLocker{},
	)

	mux := http.NewServeMux()
	interfaces.NewOrderHandler(svc).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, repo
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateAndGetOrder(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/orders", map[string]interface{}{
		"client_id":        "client-1",
		"pickup_address":   "12 Pickup St",
		"delivery_address": "34 Delivery Ave",
		"priority":         "high",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "submitted", created.Status)
	require.NotEmpty(t, created.OrderID)

	getResp, err := http.Get(server.URL + "/orders/" + created.OrderID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var view map[string]interface{}
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&view))
	assert.Equal(t, "client-1", view["client_id"])
	assert.Equal(t, "high", view["priority"])
}

func TestGetOrderNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/orders/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateOrderValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/orders", map[string]interface{}{
		"client_id": "client-1",
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportDeliveryStatusMapping(t *testing.T) {
	server, repo := newTestServer(t)

	order, err := domain.NewOrder("o-1", "client-1", "a", "b", nil, "normal")
	require.NoError(t, err)
	order.AssignedDriverID = "driver-1"
	require.NoError(t, repo.Save(context.Background(), order))

	t.Run("should accept a valid report", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/orders/o-1/status", map[string]interface{}{
			"driver_id": "driver-1",
			"status":    "out_for_delivery",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("should map unknown status to 400", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/orders/o-1/status", map[string]interface{}{
			"driver_id": "driver-1",
			"status":    "teleported",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("should map unknown order to 404", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/orders/ghost/status", map[string]interface{}{
			"driver_id": "driver-1",
			"status":    "delivered",
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("should map unassigned driver to 403", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/orders/o-1/status", map[string]interface{}{
			"driver_id": "driver-2",
			"status":    "delivered",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("should reject reports without a driver id", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/orders/o-1/status", map[string]interface{}{
			"status": "delivered",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDriverRoute(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/driver/routes/driver-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var route map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&route))
	assert.Equal(t, "driver-1", route["driver_id"])
}

func TestAdminStatsEndpoint(t *testing.T) {
	server, repo := newTestServer(t)

	order, err := domain.NewOrder("o-1", "client-1", "a", "b", nil, "normal")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), order))

	resp, err := http.Get(server.URL + "/admin/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		TotalOrders   int64 `json:"total_orders"`
		PendingOrders int64 `json:"pending_orders"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.PendingOrders)
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
