package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"swiftlogistics/internal/service/order/application"
	"swiftlogistics/internal/service/order/domain"
	"swiftlogistics/internal/service/order/domain/port"
)

// ---- 测试替身 ----

type fakeOrderRepo struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	saveErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *fakeOrderRepo) Save(_ context.Context, order *domain.Order) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepo) CountByStatus(_ context.Context) (map[domain.Status]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.Status]int64)
	for _, order := range r.orders {
		counts[order.Status]++
	}
	return counts, nil
}

func (r *fakeOrderRepo) stored(t *testing.T, id string) *domain.Order {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	require.True(t, ok, "order %s not persisted", id)
	copied := *order
	return &copied
}

type fakeUpdateRepo struct {
	mu      sync.Mutex
	updates []*domain.DeliveryUpdate
}

func (r *fakeUpdateRepo) Append(_ context.Context, update *domain.DeliveryUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update)
	return nil
}

func (r *fakeUpdateRepo) ListByOrder(_ context.Context, orderID string) ([]*domain.DeliveryUpdate, error) {
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

// fakeSystems 同时充当三个外部系统的端口实现，记录每条腿是否被调用。
type fakeSystems struct {
	mu sync.Mutex

	cmsResult port.RegistrationResult
	cmsErr    error
	wmsResult port.RegistrationResult
	wmsErr    error
	rosResult port.RegistrationResult
	rosErr    error

	cmsCalled, wmsCalled, rosCalled bool
	statusSyncs                     []domain.Status
}

func (f *fakeSystems) RegisterOrder(_ context.Context, _ *domain.Order) (port.RegistrationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmsCalled = true
	return f.cmsResult, f.cmsErr
}

func (f *fakeSystems) RegisterPackage(_ context.Context, _ *domain.Order) (port.RegistrationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wmsCalled = true
	return f.wmsResult, f.wmsErr
}

func (f *fakeSystems) UpdatePackageStatus(_ context.Context, _ string, status domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusSyncs = append(f.statusSyncs, status)
	return nil
}

func (f *fakeSystems) RegisterDeliveryPoint(_ context.Context, _ *domain.Order) (port.RegistrationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosCalled = true
	return f.rosResult, f.rosErr
}

func (f *fakeSystems) DriverRoute(_ context.Context, driverID string) (map[string]interface{}, error) {
	return map[string]interface{}{"driver_id": driverID}, nil
}

type publishedEvent struct {
	Topic   string
	Payload domain.EventPayload
}

type fakePublisher struct {
	mu         sync.Mutex
	events     []publishedEvent
	failTopics map[string]error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload domain.EventPayload) error {
	if err, ok := p.failTopics[topic]; ok {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Payload: payload})
	return nil
}

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []domain.LiveMessage
	err    error
}

func (p *fakePusher) PushToClient(_ context.Context, _ string, msg domain.LiveMessage) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, msg)
	return nil
}

type noopLocker struct{}

func (noopLocker) Acquire(_ context.Context, _ string) (func(), error) {
	return func() {}, nil
}

// ---- 组装 ----

type fixture struct {
	svc       *application.OrderApplicationService
	orderRepo *fakeOrderRepo
	systems   *fakeSystems
	publisher *fakePublisher
	pusher    *fakePusher
	updates   *fakeUpdateRepo
}

func newFixture() *fixture {
	orderRepo := newFakeOrderRepo()
	updates := &fakeUpdateRepo{}
	systems := &fakeSystems{
		cmsResult: port.RegistrationResult{Reference: "CMS-REF-1"},
		wmsResult: port.RegistrationResult{Reference: "PKG-REF-1"},
		rosResult: port.RegistrationResult{Reference: "DP-REF-1"},
	}
	publisher := &fakePublisher{}
	pusher := &fakePusher{}

	svc := application.NewOrderApplicationService(
		orderRepo, updates, noop.NewTracerProvider().Tracer("test"),
		systems, systems, systems, publisher, pusher, noopLocker{},
	)
	return &fixture{
		svc: svc, orderRepo: orderRepo, systems: systems,
		publisher: publisher, pusher: pusher, updates: updates,
	}
}

func (f *fixture) submittedOrder(t *testing.T, id string) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(id, "client-1", "12 Pickup St", "34 Delivery Ave", nil, "normal")
	require.NoError(t, err)
	require.NoError(t, f.orderRepo.Save(context.Background(), order))
	return order
}

// ---- 下单 ----

func TestRequestOrderCreation(t *testing.T) {
	t.Run("should persist order and enqueue submission", func(t *testing.T) {
		f := newFixture()

		resp, err := f.svc.RequestOrderCreation(context.Background(), &application.CreateOrderRequest{
			ClientID:        "client-1",
			PickupAddress:   "12 Pickup St",
			DeliveryAddress: "34 Delivery Ave",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, resp.Status)

		stored := f.orderRepo.stored(t, resp.OrderID)
		assert.Equal(t, domain.StatusSubmitted, stored.Status)
		assert.Equal(t, []string{domain.TopicOrderSubmitted}, f.publisher.topics())
	})

	t.Run("should surface enqueue failure to the caller", func(t *testing.T) {
		f := newFixture()
		f.publisher.failTopics = map[string]error{
			domain.TopicOrderSubmitted: errors.New("broker unavailable"),
		}

		_, err := f.svc.RequestOrderCreation(context.Background(), &application.CreateOrderRequest{
			ClientID:        "client-1",
			PickupAddress:   "a",
			DeliveryAddress: "b",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker unavailable")
	})

	t.Run("should reject incomplete requests", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.RequestOrderCreation(context.Background(), &application.CreateOrderRequest{
			ClientID: "client-1",
		})

		require.Error(t, err)
		assert.Empty(t, f.publisher.topics())
	})
}

// ---- 编排 ----

func TestSubmitOrder(t *testing.T) {
	t.Run("should mark processing when all legs return real references", func(t *testing.T) {
		f := newFixture()
		order := f.submittedOrder(t, "o-1")

		require.NoError(t, f.svc.SubmitOrder(context.Background(), order.ID))

		stored := f.orderRepo.stored(t, order.ID)
		assert.Equal(t, domain.StatusProcessing, stored.Status)
		assert.Equal(t, "CMS-REF-1", stored.CMSReference)
		assert.Equal(t, "PKG-REF-1", stored.WMSReference)
		assert.Equal(t, "DP-REF-1", stored.ROSReference)
		assert.Equal(t, []string{domain.TopicOrderProcessed}, f.publisher.topics())
	})

	t.Run("should mark processing when every leg degraded", func(t *testing.T) {
		// 三个下游全部不可达：降级后的合成引用对流程等同成功
		f := newFixture()
		f.systems.cmsResult = port.RegistrationResult{Reference: "CMS_MOCK_o-1", Degraded: true}
		f.systems.wmsResult = port.RegistrationResult{Reference: "WMS_MOCK_o-1", Degraded: true}
		f.systems.rosResult = port.RegistrationResult{Reference: "ROS_MOCK_o-1", Degraded: true}
		order := f.submittedOrder(t, "o-1")

		require.NoError(t, f.svc.SubmitOrder(context.Background(), order.ID))

		stored := f.orderRepo.stored(t, order.ID)
		assert.Equal(t, domain.StatusProcessing, stored.Status)
		assert.Equal(t, "CMS_MOCK_o-1", stored.CMSReference)
		assert.Equal(t, "WMS_MOCK_o-1", stored.WMSReference)
		assert.Equal(t, "ROS_MOCK_o-1", stored.ROSReference)
		assert.Equal(t, []string{domain.TopicOrderProcessed}, f.publisher.topics())
	})

	t.Run("should mark failed on explicit hard failure and still attempt every leg", func(t *testing.T) {
		f := newFixture()
		f.systems.cmsErr = errors.New("cms rejected order: duplicate client reference")
		f.systems.cmsResult = port.RegistrationResult{}
		order := f.submittedOrder(t, "o-1")

		require.NoError(t, f.svc.SubmitOrder(context.Background(), order.ID))

		assert.True(t, f.systems.cmsCalled)
		assert.True(t, f.systems.wmsCalled)
		assert.True(t, f.systems.rosCalled)

		stored := f.orderRepo.stored(t, order.ID)
		assert.Equal(t, domain.StatusFailed, stored.Status)
		assert.Contains(t, stored.ErrorMessage, "duplicate client reference")
		// 失败腿的引用保持为空，成功腿的引用保留
		assert.Empty(t, stored.CMSReference)
		assert.Equal(t, "PKG-REF-1", stored.WMSReference)
		assert.Equal(t, "DP-REF-1", stored.ROSReference)
		assert.Equal(t, []string{domain.TopicOrderFailed}, f.publisher.topics())
	})

	t.Run("should skip re-delivered submissions", func(t *testing.T) {
		f := newFixture()
		order := f.submittedOrder(t, "o-1")
		require.NoError(t, f.svc.SubmitOrder(context.Background(), order.ID))
		f.systems.cmsCalled = false
		f.systems.wmsCalled = false
		f.systems.rosCalled = false

		require.NoError(t, f.svc.SubmitOrder(context.Background(), order.ID))

		assert.False(t, f.systems.cmsCalled)
		assert.False(t, f.systems.wmsCalled)
		assert.False(t, f.systems.rosCalled)
		// 不重复发布结果事件
		assert.Equal(t, []string{domain.TopicOrderProcessed}, f.publisher.topics())
	})

	t.Run("should return error when order does not exist", func(t *testing.T) {
		f := newFixture()

		err := f.svc.SubmitOrder(context.Background(), "ghost")

		require.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("should swallow outcome publish failures", func(t *testing.T) {
		f := newFixture()
		f.publisher.failTopics = map[string]error{
			domain.TopicOrderProcessed: errors.New("broker unavailable"),
		}
		order := f.submittedOrder(t, "o-1")

		require.NoError(t, f.svc.SubmitOrder(context.Background(), order.ID))

		stored := f.orderRepo.stored(t, order.ID)
		assert.Equal(t, domain.StatusProcessing, stored.Status)
	})
}

// ---- 司机上报 ----

func TestReportDelivery(t *testing.T) {
	assigned := func(t *testing.T, f *fixture, id string) *domain.Order {
		t.Helper()
		order := f.submittedOrder(t, id)
		order.AssignedDriverID = "driver-1"
		require.NoError(t, order.ApplyDeliveryStatus(domain.StatusInWarehouse))
		require.NoError(t, f.orderRepo.Save(context.Background(), order))
		return order
	}

	t.Run("should record update, sync wms, push live and publish event", func(t *testing.T) {
		f := newFixture()
		order := assigned(t, f, "o-1")

		err := f.svc.ReportDelivery(context.Background(), &application.ReportDeliveryRequest{
			OrderID:  order.ID,
			DriverID: "driver-1",
			Status:   string(domain.StatusOutForDelivery),
			Location: "6.9,79.8",
		})

		require.NoError(t, err)

		stored := f.orderRepo.stored(t, order.ID)
		assert.Equal(t, domain.StatusOutForDelivery, stored.Status)

		require.Len(t, f.updates.updates, 1)
		assert.Equal(t, "driver-1", f.updates.updates[0].DriverID)
		assert.Equal(t, "6.9,79.8", f.updates.updates[0].Location)

		assert.Equal(t, []domain.Status{domain.StatusOutForDelivery}, f.systems.statusSyncs)

		require.Len(t, f.pusher.pushes, 1)
		msg := f.pusher.pushes[0]
		assert.Equal(t, "delivery_update", msg.Type)
		assert.Equal(t, order.ID, msg.OrderID)
		assert.Equal(t, string(domain.StatusOutForDelivery), msg.Status)
		assert.NotEmpty(t, msg.Timestamp)

		// 上报只发布 delivery.updated，不重放编排结果事件
		assert.Equal(t, []string{domain.TopicDeliveryUpdated}, f.publisher.topics())
	})

	t.Run("should reject unknown statuses without touching the order", func(t *testing.T) {
		f := newFixture()
		order := assigned(t, f, "o-1")

		err := f.svc.ReportDelivery(context.Background(), &application.ReportDeliveryRequest{
			OrderID:  order.ID,
			DriverID: "driver-1",
			Status:   "teleported",
		})

		require.ErrorIs(t, err, domain.ErrUnknownStatus)
		assert.Equal(t, domain.StatusInWarehouse, f.orderRepo.stored(t, order.ID).Status)
		assert.Empty(t, f.updates.updates)
	})

	t.Run("should reject reports for unknown orders", func(t *testing.T) {
		f := newFixture()

		err := f.svc.ReportDelivery(context.Background(), &application.ReportDeliveryRequest{
			OrderID:  "ghost",
			DriverID: "driver-1",
			Status:   string(domain.StatusDelivered),
		})

		require.ErrorIs(t, err, domain.ErrOrderNotFound)
		assert.True(t, application.IsNotFound(err))
	})

	t.Run("should reject reports from a driver not assigned to the order", func(t *testing.T) {
		f := newFixture()
		order := assigned(t, f, "o-1")

		err := f.svc.ReportDelivery(context.Background(), &application.ReportDeliveryRequest{
			OrderID:  order.ID,
			DriverID: "driver-2",
			Status:   string(domain.StatusDelivered),
		})

		require.ErrorIs(t, err, domain.ErrNotAssignedDriver)
		assert.True(t, application.IsForbidden(err))
		assert.Equal(t, domain.StatusInWarehouse, f.orderRepo.stored(t, order.ID).Status)
		assert.Empty(t, f.updates.updates)
	})

	t.Run("should succeed even when push and publish fail", func(t *testing.T) {
		f := newFixture()
		order := assigned(t, f, "o-1")
		f.pusher.err = errors.New("client gone")
		f.publisher.failTopics = map[string]error{
			domain.TopicDeliveryUpdated: errors.New("broker unavailable"),
		}

		err := f.svc.ReportDelivery(context.Background(), &application.ReportDeliveryRequest{
			OrderID:  order.ID,
			DriverID: "driver-1",
			Status:   string(domain.StatusDelivered),
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, f.orderRepo.stored(t, order.ID).Status)
	})
}

// ---- 查询 ----

func TestListDeliveryUpdates(t *testing.T) {
	f := newFixture()
	order := f.submittedOrder(t, "o-1")
	order.AssignedDriverID = "driver-1"
	require.NoError(t, f.orderRepo.Save(context.Background(), order))

	for _, status := range []domain.Status{domain.StatusInWarehouse, domain.StatusOutForDelivery} {
		require.NoError(t, f.svc.ReportDelivery(context.Background(), &application.ReportDeliveryRequest{
			OrderID:  order.ID,
			DriverID: "driver-1",
			Status:   string(status),
		}))
	}

	updates, err := f.svc.ListDeliveryUpdates(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, domain.StatusInWarehouse, updates[0].Status)
	assert.Equal(t, domain.StatusOutForDelivery, updates[1].Status)

	_, err = f.svc.ListDeliveryUpdates(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestAdminStats(t *testing.T) {
	f := newFixture()
	f.submittedOrder(t, "o-1")
	order := f.submittedOrder(t, "o-2")
	order.AssignedDriverID = "driver-1"
	require.NoError(t, f.orderRepo.Save(context.Background(), order))
	require.NoError(t, f.svc.ReportDelivery(context.Background(), &application.ReportDeliveryRequest{
		OrderID:  order.ID,
		DriverID: "driver-1",
		Status:   string(domain.StatusDelivered),
	}))

	stats, err := f.svc.AdminStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.DeliveredOrders)
	assert.InDelta(t, 50.0, stats.DeliveryRate, 0.01)
}
