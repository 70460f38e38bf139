package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/service"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/httputil"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/pagination"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service  *service.OrderService
	shopName string
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler. shopName heads printed
// receipts.
func NewOrderHandler(svc *service.OrderService, shopName string, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service:  svc,
		shopName: shopName,
		logger:   logger,
	}
}

// --- Request DTOs ---

// OrderItemRequest is one order line. Price is optional; when omitted the
// server prices the line.
type OrderItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity" validate:"dpos"`
	Price     *int64          `json:"price" validate:"omitempty,gte=0"`
	Unit      string          `json:"unit" validate:"max=20"`
}

// CreateOrderRequest is the JSON request body for creating an order.
type CreateOrderRequest struct {
	Type            string             `json:"type" validate:"required,oneof=SALE PURCHASE"`
	PartyID         string             `json:"party_id" validate:"omitempty,uuid"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount        int64              `json:"discount" validate:"gte=0"`
	PaymentMethod   string             `json:"payment_method" validate:"omitempty,oneof=CASH QR"`
	DeliveryMethod  string             `json:"delivery_method" validate:"omitempty,oneof=PICKUP DELIVERY"`
	DeliveryAddress string             `json:"delivery_address" validate:"max=500"`
	DeliveryNote    string             `json:"delivery_note" validate:"max=500"`
	RecipientName   string             `json:"recipient_name" validate:"max=200"`
	RecipientPhone  string             `json:"recipient_phone" validate:"max=30"`
	Note            string             `json:"note" validate:"max=1000"`
}

// UpdateItemsRequest replaces the lines of an open order.
type UpdateItemsRequest struct {
	Items    []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount int64              `json:"discount" validate:"gte=0"`
}

// UpdateStatusRequest is the JSON request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// StartShippingRequest names the carrier taking a READY order.
type StartShippingRequest struct {
	CarrierID   string `json:"carrier_id" validate:"omitempty,uuid"`
	CarrierName string `json:"carrier_name" validate:"max=100"`
	ShippingFee int64  `json:"shipping_fee" validate:"gte=0"`
	PaidBy      string `json:"paid_by" validate:"omitempty,oneof=SHOP CUSTOMER"`
}

// ItemReturnRequest is the quantity of one line handed back.
type ItemReturnRequest struct {
	ItemID   string          `json:"item_id" validate:"required,uuid"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CompleteDeliveryRequest settles a SHIPPING order.
type CompleteDeliveryRequest struct {
	Returns      []ItemReturnRequest `json:"returns" validate:"dive"`
	RefundAmount int64               `json:"refund_amount" validate:"gte=0"`
	Note         string              `json:"note" validate:"max=1000"`
}

// AddPaymentRequest records money received.
type AddPaymentRequest struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Method string `json:"method" validate:"omitempty,oneof=CASH QR"`
	Note   string `json:"note" validate:"max=500"`
}

// PaymentResponse is a recorded payment with the order's new paid total.
type PaymentResponse struct {
	Payment *domain.Payment `json:"payment"`
	Paid    int64           `json:"paid"`
}

func toItemInputs(items []OrderItemRequest) []service.OrderItemInput {
	out := make([]service.OrderItemInput, len(items))
	for i, it := range items {
		out[i] = service.OrderItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Unit:      it.Unit,
		}
	}
	return out
}

// --- Handlers ---

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), service.CreateOrderInput{
		Type:            req.Type,
		PartyID:         req.PartyID,
		Items:           toItemInputs(req.Items),
		Discount:        req.Discount,
		PaymentMethod:   req.PaymentMethod,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryNote:    req.DeliveryNote,
		RecipientName:   req.RecipientName,
		RecipientPhone:  req.RecipientPhone,
		Note:            req.Note,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	filter := repository.OrderFilter{Page: page.Page, PerPage: page.PerPage}

	if v := r.URL.Query().Get("type"); v != "" {
		filter.Type = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, total, filter.Page, filter.PerPage))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// UpdateItems handles PUT /api/v1/orders/{id}/items
func (h *OrderHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateItemsRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.UpdateItems(r.Context(), id.String(), service.UpdateItemsInput{
		Items:    toItemInputs(req.Items),
		Discount: req.Discount,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/{id}/status
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.Transition(r.Context(), id.String(), req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// CancelOrder handles POST /api/v1/orders/{id}/cancel
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.Cancel(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// MarkReady handles POST /api/v1/orders/{id}/ready
func (h *OrderHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.MarkReady(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// StartShipping handles POST /api/v1/orders/{id}/ship
func (h *OrderHandler) StartShipping(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req StartShippingRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.StartShipping(r.Context(), id.String(), service.StartShippingInput{
		CarrierID:   req.CarrierID,
		CarrierName: req.CarrierName,
		ShippingFee: req.ShippingFee,
		PaidBy:      req.PaidBy,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// CompleteDelivery handles POST /api/v1/orders/{id}/complete
func (h *OrderHandler) CompleteDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CompleteDeliveryRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	returns := make([]domain.ItemReturn, len(req.Returns))
	for i, rt := range req.Returns {
		returns[i] = domain.ItemReturn{ItemID: rt.ItemID, Quantity: rt.Quantity}
	}

	order, err := h.service.CompleteDelivery(r.Context(), id.String(), service.CompleteDeliveryInput{
		Returns:      returns,
		RefundAmount: req.RefundAmount,
		Note:         req.Note,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// AddPayment handles POST /api/v1/orders/{id}/payments
func (h *OrderHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AddPaymentRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	payment, paid, err := h.service.AddPayment(r.Context(), id.String(), service.AddPaymentInput{
		Amount: req.Amount,
		Method: req.Method,
		Note:   req.Note,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: PaymentResponse{Payment: payment, Paid: paid}})
}

// ListPayments handles GET /api/v1/orders/{id}/payments
func (h *OrderHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if payments == nil {
		payments = []domain.Payment{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payments})
}

// Receipt handles GET /api/v1/orders/{id}/receipt
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	text, err := h.service.Receipt(r.Context(), id.String(), h.shopName)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteText(w, http.StatusOK, text)
}

// Fulfillment handles GET /api/v1/fulfillment
func (h *OrderHandler) Fulfillment(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.AggregatePendingFulfillment(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: summary})
}
