package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/service"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/httputil"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/pagination"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/validator"
)

// CatalogHandler serves products, stock, carriers, customers and suppliers.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	SKU               string          `json:"sku" validate:"max=50"`
	Category          string          `json:"category" validate:"max=100"`
	Price             int64           `json:"price" validate:"gte=0"`
	Cost              int64           `json:"cost" validate:"gte=0"`
	Unit              string          `json:"unit" validate:"max=20"`
	SaleUnit          string          `json:"sale_unit" validate:"max=20"`
	SaleRatio         decimal.Decimal `json:"sale_ratio" validate:"dnonneg"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold" validate:"dnonneg"`
	InitialStock      decimal.Decimal `json:"initial_stock" validate:"dnonneg"`
}

// UpdateProductRequest changes catalog fields; omitted fields are kept.
type UpdateProductRequest struct {
	Name              *string          `json:"name" validate:"omitempty,max=200"`
	SKU               *string          `json:"sku" validate:"omitempty,max=50"`
	Category          *string          `json:"category" validate:"omitempty,max=100"`
	Price             *int64           `json:"price" validate:"omitempty,gte=0"`
	Cost              *int64           `json:"cost" validate:"omitempty,gte=0"`
	Unit              *string          `json:"unit" validate:"omitempty,max=20"`
	SaleUnit          *string          `json:"sale_unit" validate:"omitempty,max=20"`
	SaleRatio         *decimal.Decimal `json:"sale_ratio"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
}

// AdjustStockRequest is a manual stock movement.
type AdjustStockRequest struct {
	Type     string          `json:"type" validate:"required,oneof=IN OUT"`
	Quantity decimal.Decimal `json:"quantity" validate:"dpos"`
	Note     string          `json:"note" validate:"max=500"`
}

// AdjustStockResponse is the ledger row written and the resulting stock.
type AdjustStockResponse struct {
	Transaction *domain.InventoryTransaction `json:"transaction"`
	Stock       decimal.Decimal              `json:"stock"`
}

// CreateCarrierRequest registers a carrier.
type CreateCarrierRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone" validate:"max=30"`
}

// CreatePartyRequest registers a customer or supplier.
type CreatePartyRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"max=30"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=500"`
}

// --- Products ---

// CreateProduct handles POST /api/v1/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), service.CreateProductInput{
		Name:              req.Name,
		SKU:               req.SKU,
		Category:          req.Category,
		Price:             req.Price,
		Cost:              req.Cost,
		Unit:              req.Unit,
		SaleUnit:          req.SaleUnit,
		SaleRatio:         req.SaleRatio,
		LowStockThreshold: req.LowStockThreshold,
		InitialStock:      req.InitialStock,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	filter := repository.ProductFilter{
		Search:  r.URL.Query().Get("q"),
		Page:    page.Page,
		PerPage: page.PerPage,
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, filter.Page, filter.PerPage))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id.String(), service.UpdateProductInput{
		Name:              req.Name,
		SKU:               req.SKU,
		Category:          req.Category,
		Price:             req.Price,
		Cost:              req.Cost,
		Unit:              req.Unit,
		SaleUnit:          req.SaleUnit,
		SaleRatio:         req.SaleRatio,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// AdjustStock handles POST /api/v1/products/{id}/adjust
func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tx, stock, err := h.service.AdjustStock(r.Context(), id.String(), service.AdjustStockInput{
		Type:     req.Type,
		Quantity: req.Quantity,
		Note:     req.Note,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: AdjustStockResponse{Transaction: tx, Stock: stock}})
}

// ListTransactions handles GET /api/v1/products/{id}/transactions
func (h *CatalogHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := h.service.ListTransactions(r.Context(), id.String(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if txs == nil {
		txs = []domain.InventoryTransaction{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: txs})
}

// --- Carriers ---

// CreateCarrier handles POST /api/v1/carriers
func (h *CatalogHandler) CreateCarrier(w http.ResponseWriter, r *http.Request) {
	var req CreateCarrierRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	carrier, err := h.service.CreateCarrier(r.Context(), req.Name, req.Phone)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: carrier})
}

// ListCarriers handles GET /api/v1/carriers
func (h *CatalogHandler) ListCarriers(w http.ResponseWriter, r *http.Request) {
	carriers, err := h.service.ListCarriers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if carriers == nil {
		carriers = []domain.Carrier{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: carriers})
}

// --- Customers and suppliers ---

// partyRoutes mounts create/list/get for one party kind.
func (h *CatalogHandler) partyRoutes(kind string) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/", h.createParty(kind))
		r.Get("/", h.listParties(kind))
		r.Get("/{id}", h.getParty(kind))
	}
}

func (h *CatalogHandler) createParty(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePartyRequest
		if err := validator.DecodeAndValidate(w, r, &req); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}

		party, err := h.service.CreateParty(r.Context(), service.CreatePartyInput{
			Kind:    kind,
			Name:    req.Name,
			Phone:   req.Phone,
			Email:   req.Email,
			Address: req.Address,
		})
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}

		httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: party})
	}
}

func (h *CatalogHandler) listParties(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parties, err := h.service.ListParties(r.Context(), kind)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		if parties == nil {
			parties = []domain.Party{}
		}

		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: parties})
	}
}

func (h *CatalogHandler) getParty(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		party, err := h.service.GetParty(r.Context(), kind, id.String())
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: party})
	}
}
