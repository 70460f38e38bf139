package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/service"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/httputil"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/validator"
)

const dateLayout = "2006-01-02"

// PromotionHandler serves promotion endpoints.
type PromotionHandler struct {
	service *service.PromotionService
	logger  *slog.Logger
}

// NewPromotionHandler creates a new promotion HTTP handler.
func NewPromotionHandler(svc *service.PromotionService, logger *slog.Logger) *PromotionHandler {
	return &PromotionHandler{service: svc, logger: logger}
}

// TierRequest is one quantity threshold.
type TierRequest struct {
	MinQuantity decimal.Decimal `json:"min_quantity" validate:"dpos"`
	Price       int64           `json:"price" validate:"gte=0"`
}

// PromotionProductRequest attaches tiers to a product.
type PromotionProductRequest struct {
	ProductID string        `json:"product_id" validate:"required,uuid"`
	Tiers     []TierRequest `json:"tiers" validate:"required,min=1,dive"`
}

// CreatePromotionRequest is the JSON request body for creating a promotion.
// Dates are calendar days, both inclusive.
type CreatePromotionRequest struct {
	Name      string                    `json:"name" validate:"required,max=200"`
	StartDate string                    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string                    `json:"end_date" validate:"required,datetime=2006-01-02"`
	Products  []PromotionProductRequest `json:"products" validate:"required,min=1,dive"`
}

// PricePreview is the resolved unit price for a quantity.
type PricePreview struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     int64           `json:"price"`
}

// CreatePromotion handles POST /api/v1/promotions
func (h *PromotionHandler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req CreatePromotionRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Validated above.
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)

	products := make([]service.PromotionProductInput, len(req.Products))
	for i, p := range req.Products {
		tiers := make([]service.TierInput, len(p.Tiers))
		for j, t := range p.Tiers {
			tiers[j] = service.TierInput{MinQuantity: t.MinQuantity, Price: t.Price}
		}
		products[i] = service.PromotionProductInput{ProductID: p.ProductID, Tiers: tiers}
	}

	promo, err := h.service.CreatePromotion(r.Context(), service.CreatePromotionInput{
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Products:  products,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: promo})
}

// ListPromotions handles GET /api/v1/promotions
func (h *PromotionHandler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.service.ListPromotions(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if promos == nil {
		promos = []domain.Promotion{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: promos})
}

// GetPromotion handles GET /api/v1/promotions/{id}
func (h *PromotionHandler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	promo, err := h.service.GetPromotion(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: promo})
}

// Deactivate handles POST /api/v1/promotions/{id}/deactivate
func (h *PromotionHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PreviewPrice handles GET /api/v1/products/{id}/price?qty=&date=
func (h *PromotionHandler) PreviewPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	qty, err := decimal.NewFromString(r.URL.Query().Get("qty"))
	if err != nil || !qty.IsPositive() {
		httputil.WriteError(w, r, apperrors.InvalidInput("qty must be a positive number"), h.logger)
		return
	}

	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		asOf, err = time.Parse(dateLayout, v)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("date must be YYYY-MM-DD"), h.logger)
			return
		}
	}

	price, err := h.service.ResolvePromotionPrice(r.Context(), id.String(), qty, asOf)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: PricePreview{ProductID: id.String(), Quantity: qty, Price: price}})
}
