// Package handler содержит HTTP-обработчики API маркетплейса.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/gateway"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/middleware"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/ranking"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/repository"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/settlement"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RankProducts(ctx context.Context, items []model.Product, override *ranking.WeightConfig) []ranking.RankedProduct
	Weights() ranking.WeightConfig
	UpdateWeights(w ranking.WeightConfig) error
	CreateCheckout(ctx context.Context, req model.CheckoutRequest) (*model.PaymentIntent, error)
	ConfirmCheckout(ctx context.Context, intentID string, conf gateway.Confirmation) (*model.SettlementResult, error)
	RefundCheckout(ctx context.Context, intentID string, amountCents int64, reason string) (*model.Refund, error)
	RefundsForIntent(ctx context.Context, intentID string) ([]model.Refund, error)
	CancelCheckout(ctx context.Context, intentID string) (*model.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*model.PaymentIntent, error)
}

// Handler реализует HTTP-обработчики API маркетплейса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	adminPassword  string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, adminPassword string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		adminPassword:  adminPassword,
	}
}

type supplierRequest struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Class                string  `json:"class"`
	Rating               float64 `json:"rating"`
	DistanceKM           float64 `json:"distance_km"`
	Verified             bool    `json:"verified"`
	LocalBadge           bool    `json:"local_badge"`
	ReviewCount          int     `json:"review_count"`
	ResponseTimeHours    float64 `json:"response_time_hours"`
	DeliveryReliability  float64 `json:"delivery_reliability"`
	PriceCompetitiveness float64 `json:"price_competitiveness"`
}

type productRequest struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	UnitPrice    float64         `json:"unit_price"`
	Quantity     int64           `json:"quantity"`
	DeliveryCost float64         `json:"delivery_cost"`
	Supplier     supplierRequest `json:"supplier"`
}

type rankRequest struct {
	Items   []productRequest      `json:"items"`
	Weights *ranking.WeightConfig `json:"weights,omitempty"`
}

type rankedProductResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	SupplierID     string   `json:"supplier_id"`
	SupplierName   string   `json:"supplier_name"`
	FairnessScore  float64  `json:"fairness_score"`
	TrustBadges    []string `json:"trust_badges"`
	ProductCost    float64  `json:"product_cost"`
	DeliveryCost   float64  `json:"delivery_cost"`
	TotalCost      float64  `json:"total_cost"`
	Savings        float64  `json:"savings,omitempty"`
	CommissionRate float64  `json:"commission_rate"`
	Commission     float64  `json:"commission"`
}

// RankCatalog ранжирует переданные позиции каталога по честному баллу.
func (h *Handler) RankCatalog(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Weights != nil && !req.Weights.Valid() {
		http.Error(w, "weights must be non-negative", http.StatusBadRequest)
		return
	}

	items := make([]model.Product, 0, len(req.Items))
	for _, p := range req.Items {
		quantity := p.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, model.Product{
			ID:                p.ID,
			Name:              p.Name,
			UnitPriceCents:    toCents(p.UnitPrice),
			Quantity:          quantity,
			DeliveryCostCents: toCents(p.DeliveryCost),
			Supplier: model.Supplier{
				ID:                   p.Supplier.ID,
				Name:                 p.Supplier.Name,
				Class:                model.SupplierClass(p.Supplier.Class),
				Rating:               p.Supplier.Rating,
				DistanceKM:           p.Supplier.DistanceKM,
				Verified:             p.Supplier.Verified,
				LocalBadge:           p.Supplier.LocalBadge,
				ReviewCount:          p.Supplier.ReviewCount,
				ResponseTimeHours:    p.Supplier.ResponseTimeHours,
				DeliveryReliability:  p.Supplier.DeliveryReliability,
				PriceCompetitiveness: p.Supplier.PriceCompetitiveness,
			},
		})
	}

	ranked := h.service.RankProducts(r.Context(), items, req.Weights)

	resp := make([]rankedProductResponse, 0, len(ranked))
	for _, rp := range ranked {
		resp = append(resp, rankedProductResponse{
			ID:             rp.Product.ID,
			Name:           rp.Product.Name,
			SupplierID:     rp.Product.Supplier.ID,
			SupplierName:   rp.Product.Supplier.Name,
			FairnessScore:  rp.FairnessScore,
			TrustBadges:    rp.TrustBadges,
			ProductCost:    fromCents(rp.ProductCost),
			DeliveryCost:   fromCents(rp.DeliveryCost),
			TotalCost:      fromCents(rp.TotalCost),
			Savings:        fromCents(rp.Savings),
			CommissionRate: rp.CommissionRate,
			Commission:     fromCents(rp.CommissionCents),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type checkoutRequest struct {
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Gateway       string            `json:"gateway"`
	OrderID       string            `json:"order_id"`
	CustomerEmail string            `json:"customer_email"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID           string  `json:"id"`
	OrderID      string  `json:"order_id"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Gateway      string  `json:"gateway"`
	Status       string  `json:"status"`
	ClientSecret string  `json:"client_secret,omitempty"`
	Fee          float64 `json:"transaction_fee,omitempty"`
	Total        float64 `json:"total_amount,omitempty"`
}

// CreateCheckout создаёт платёжное намерение через выбранный шлюз.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	intent, err := h.service.CreateCheckout(r.Context(), model.CheckoutRequest{
		Amount:        req.Amount,
		Currency:      req.Currency,
		Gateway:       req.Gateway,
		OrderID:       req.OrderID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Metadata:      req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidAmount):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, settlement.ErrInvalidCurrency):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, settlement.ErrUnknownGateway):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		default:
			h.logger.Error("create checkout error", zap.Error(err), zap.String("order", req.OrderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(intentToResponse(intent)); err != nil {
		h.logger.Error("encode intent error", zap.Error(err))
	}
}

// GetCheckout возвращает платёжное намерение по идентификатору.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "intentID")

	intent, err := h.service.GetIntent(r.Context(), intentID)
	if err != nil {
		if errors.Is(err, repository.ErrIntentNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get intent error", zap.Error(err), zap.String("intentID", intentID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(intentToResponse(intent)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type confirmRequest struct {
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature,omitempty"`
}

// ConfirmCheckout выполняет серверное подтверждение платёжного намерения.
func (h *Handler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "intentID")

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result, err := h.service.ConfirmCheckout(r.Context(), intentID, gateway.Confirmation{
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrIntentNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, settlement.ErrInvalidState):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, gateway.ErrSignatureMismatch):
			h.logger.Warn("confirmation signature mismatch", zap.String("intentID", intentID))
			http.Error(w, err.Error(), http.StatusPaymentRequired)
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		default:
			h.logger.Error("confirm checkout error", zap.Error(err), zap.String("intentID", intentID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Status == model.IntentStatusFailed {
		w.WriteHeader(http.StatusPaymentRequired)
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("encode settlement result error", zap.Error(err))
	}
}

type refundRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

type refundResponse struct {
	ID       string  `json:"id"`
	IntentID string  `json:"intent_id"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
	Reason   string  `json:"reason,omitempty"`
}

// RefundCheckout создаёт возврат по успешному платёжному намерению.
func (h *Handler) RefundCheckout(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "intentID")

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	refund, err := h.service.RefundCheckout(r.Context(), intentID, toCents(req.Amount), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrIntentNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, settlement.ErrInvalidState):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, gateway.ErrInvalidAmount):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		default:
			h.logger.Error("refund error", zap.Error(err), zap.String("intentID", intentID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(refundResponse{
		ID:       refund.ID,
		IntentID: refund.IntentID,
		Amount:   fromCents(refund.AmountCents),
		Status:   string(refund.Status),
		Reason:   refund.Reason,
	}); err != nil {
		h.logger.Error("encode refund error", zap.Error(err))
	}
}

// CancelCheckout отменяет неподтверждённое платёжное намерение.
// Повторная отмена отвечает тем же результатом.
func (h *Handler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "intentID")

	intent, err := h.service.CancelCheckout(r.Context(), intentID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrIntentNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, settlement.ErrInvalidState):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("cancel checkout error", zap.Error(err), zap.String("intentID", intentID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(intentToResponse(intent)); err != nil {
		h.logger.Error("encode intent error", zap.Error(err))
	}
}

// GetRefunds возвращает историю возвратов по платёжному намерению.
func (h *Handler) GetRefunds(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "intentID")

	refunds, err := h.service.RefundsForIntent(r.Context(), intentID)
	if err != nil {
		if errors.Is(err, repository.ErrIntentNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get refunds error", zap.Error(err), zap.String("intentID", intentID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(refunds) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]refundResponse, 0, len(refunds))
	for _, refund := range refunds {
		resp = append(resp, refundResponse{
			ID:       refund.ID,
			IntentID: refund.IntentID,
			Amount:   fromCents(refund.AmountCents),
			Status:   string(refund.Status),
			Reason:   refund.Reason,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

// AdminLogin выполняет аутентификацию администратора и установку cookie.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if h.adminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) != 1 {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.authMiddleware.SetAuthCookie(w, middleware.AdminPrincipal)
	w.WriteHeader(http.StatusOK)
}

// GetWeights возвращает активную конфигурацию весов ранжирования.
func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	weights := h.service.Weights()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(weights); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// UpdateWeights заменяет активную конфигурацию весов ранжирования.
func (h *Handler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var weights ranking.WeightConfig
	if err := json.NewDecoder(r.Body).Decode(&weights); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateWeights(weights); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("ranking weights updated",
		zap.Float64("local_boost", weights.LocalBoost),
		zap.Float64("verification", weights.Verification),
		zap.Float64("rating", weights.Rating),
		zap.Float64("proximity", weights.Proximity),
		zap.Float64("price", weights.Price),
	)

	w.WriteHeader(http.StatusOK)
}

func intentToResponse(intent *model.PaymentIntent) intentResponse {
	return intentResponse{
		ID:           intent.ID,
		OrderID:      intent.OrderID,
		Amount:       fromCents(intent.AmountCents),
		Currency:     intent.Currency,
		Gateway:      intent.Gateway,
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
		Fee:          fromCents(intent.FeeCents),
		Total:        fromCents(intent.TotalCents),
	}
}

func toCents(amount float64) int64 {
	return validation.ToCents(amount)
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}
