package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"swiftlogistics/internal/pkg/logger"
	"swiftlogistics/internal/service/order/application"
	"swiftlogistics/internal/service/order/domain"
)

const serviceName = "middleware"

// OrderHandler 封装了订单编排服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("POST /orders", h.createOrderHandler)
	mux.HandleFunc("GET /orders/{id}", h.getOrderHandler)
	mux.HandleFunc("GET /orders/{id}/updates", h.listUpdatesHandler)
	mux.HandleFunc("POST /orders/{id}/status", h.reportDeliveryHandler)
	mux.HandleFunc("GET /driver/routes/{driverId}", h.driverRouteHandler)
	mux.HandleFunc("GET /admin/stats", h.adminStatsHandler)
}

// extractCtx 恢复上游传入的追踪上下文并开启本层 Span。
func extractCtx(r *http.Request, spanName string) (context.Context, func()) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, spanName)
	return ctx, func() { span.End() }
}

func (h *OrderHandler) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, end := extractCtx(r, "api.CreateOrder")
	defer end()

	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.RequestOrderCreation(ctx, &req)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("order creation rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusAccepted, resp)
}

// orderView 是对外的订单表示。
type orderView struct {
	OrderID          string                 `json:"order_id"`
	ClientID         string                 `json:"client_id"`
	AssignedDriverID string                 `json:"assigned_driver_id,omitempty"`
	PickupAddress    string                 `json:"pickup_address"`
	DeliveryAddress  string                 `json:"delivery_address"`
	PackageDetails   map[string]interface{} `json:"package_details,omitempty"`
	Priority         string                 `json:"priority"`
	Status           string                 `json:"status"`
	CMSReference     string                 `json:"cms_reference,omitempty"`
	WMSReference     string                 `json:"wms_reference,omitempty"`
	ROSReference     string                 `json:"ros_reference,omitempty"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	CreatedAt        string                 `json:"created_at"`
	UpdatedAt        string                 `json:"updated_at"`
}

func toOrderView(order *domain.Order) orderView {
	return orderView{
		OrderID:          order.ID,
		ClientID:         order.ClientID,
		AssignedDriverID: order.AssignedDriverID,
		PickupAddress:    order.PickupAddress,
		DeliveryAddress:  order.DeliveryAddress,
		PackageDetails:   order.PackageDetails,
		Priority:         order.Priority,
		Status:           string(order.Status),
		CMSReference:     order.CMSReference,
		WMSReference:     order.WMSReference,
		ROSReference:     order.ROSReference,
		ErrorMessage:     order.ErrorMessage,
		CreatedAt:        order.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        order.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *OrderHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, end := extractCtx(r, "api.GetOrder")
	defer end()

	order, err := h.service.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(order))
}

// updateView 是对外的配送记录表示。
type updateView struct {
	ID              string `json:"id"`
	DriverID        string `json:"driver_id"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
	Location        string `json:"location,omitempty"`
	ProofOfDelivery string `json:"proof_of_delivery,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func (h *OrderHandler) listUpdatesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, end := extractCtx(r, "api.ListDeliveryUpdates")
	defer end()

	updates, err := h.service.ListDeliveryUpdates(ctx, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]updateView, 0, len(updates))
	for _, u := range updates {
		views = append(views, updateView{
			ID:              u.ID,
			DriverID:        u.DriverID,
			Status:          string(u.Status),
			Notes:           u.Notes,
			Location:        u.Location,
			ProofOfDelivery: u.ProofOfDelivery,
			CreatedAt:       u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrderHandler) reportDeliveryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, end := extractCtx(r, "api.ReportDelivery")
	defer end()

	var req application.ReportDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.OrderID = r.PathValue("id")
	if req.DriverID == "" || req.Status == "" {
		http.Error(w, "driver_id and status are required", http.StatusBadRequest)
		return
	}

	if err := h.service.ReportDelivery(ctx, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}

func (h *OrderHandler) driverRouteHandler(w http.ResponseWriter, r *http.Request) {
	ctx, end := extractCtx(r, "api.DriverRoute")
	defer end()

	driverID := r.PathValue("driverId")
	route, err := h.service.DriverRoute(ctx, driverID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("driver_id", driverID).Msg("driver route lookup failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (h *OrderHandler) adminStatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, end := extractCtx(r, "api.AdminStats")
	defer end()

	stats, err := h.service.AdminStats(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeDomainError 把领域错误映射为 HTTP 状态码。
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case application.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case application.IsForbidden(err):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
