package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
)

// Комиссия шлюза мгновенных платежей.
const (
	instantFeeRate       = 0.02
	instantFixedFeeCents = 20
)

// InstantGateway — адаптер региональной системы мгновенных платежей.
// Подтверждение оплаты проверяется пересчётом HMAC-подписи по схеме
// orderID|paymentID на общем секрете: расхождение подписи всегда
// закрывает подтверждение отказом.
type InstantGateway struct {
	baseURL        string
	keyID          string
	keySecret      string
	maxAmountCents int64
	httpClient     *http.Client
}

// NewInstantGateway создаёт адаптер шлюза мгновенных платежей.
func NewInstantGateway(baseURL, keyID, keySecret string, maxAmountCents int64) *InstantGateway {
	return &InstantGateway{
		baseURL:        strings.TrimRight(baseURL, "/"),
		keyID:          keyID,
		keySecret:      keySecret,
		maxAmountCents: maxAmountCents,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Tag возвращает идентификатор шлюза.
func (g *InstantGateway) Tag() Tag { return TagInstant }

// Fee возвращает комиссию шлюза для указанной суммы в минорных единицах.
func (g *InstantGateway) Fee(amountCents int64) int64 {
	return feeCents(amountCents, instantFeeRate, instantFixedFeeCents)
}

type instantOrderResponse struct {
	ID string `json:"id"`
}

type instantPaymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type instantRefundResponse struct {
	ID string `json:"id"`
}

// CreateIntent создаёт заказ на стороне процессора. Идентификатор заказа
// процессора служит клиентским секретом для фронтенда.
func (g *InstantGateway) CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error) {
	if req.AmountCents <= 0 || req.AmountCents > g.maxAmountCents {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, req.AmountCents)
	}

	body := map[string]any{
		"amount":   req.AmountCents,
		"currency": req.Currency,
		"receipt":  req.OrderID,
		"notes":    req.Metadata,
	}

	var resp instantOrderResponse
	if err := g.do(ctx, http.MethodPost, "/v1/orders", body, &resp); err != nil {
		return nil, fmt.Errorf("create instant order: %w", err)
	}

	return &Intent{
		ProviderID:   resp.ID,
		ClientSecret: resp.ID,
		Status:       "created",
	}, nil
}

// Confirm пересчитывает подпись по данным клиента и сравнивает её с
// присланной. При расхождении подтверждение отклоняется; дополнительно
// запрашивается статус платежа у процессора, чтобы пометить намерение
// для ручной сверки, если списание всё же произошло.
func (g *InstantGateway) Confirm(ctx context.Context, intent *model.PaymentIntent, conf Confirmation) (ConfirmResult, error) {
	if conf.PaymentID == "" || conf.Signature == "" {
		return ConfirmResult{Reason: "missing confirmation data"}, ErrSignatureMismatch
	}

	expected := g.sign(intent.ProviderID, conf.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(conf.Signature)) {
		captured, status := g.paymentCaptured(ctx, conf.PaymentID)
		return ConfirmResult{
			ProviderStatus:   status,
			Reason:           "signature mismatch",
			CapturedUpstream: captured,
		}, ErrSignatureMismatch
	}

	return ConfirmResult{
		Succeeded:      true,
		ProviderStatus: "captured",
	}, nil
}

// CheckCaptured запрашивает статус платежа у процессора. Без известного
// идентификатора платежа проверка невозможна и считается незавершённой.
func (g *InstantGateway) CheckCaptured(ctx context.Context, intent *model.PaymentIntent) (bool, string, error) {
	if intent.ProviderPaymentID == "" {
		return false, "", fmt.Errorf("intent %s has no payment id to check", intent.ID)
	}

	var resp instantPaymentResponse
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+intent.ProviderPaymentID, nil, &resp); err != nil {
		return false, "", fmt.Errorf("fetch instant payment: %w", err)
	}
	return resp.Status == "captured", resp.Status, nil
}

// Refund создаёт возврат по платежу процессора. Частичные возвраты
// поддерживаются; сумма сверх исходной отклоняется.
func (g *InstantGateway) Refund(ctx context.Context, intent *model.PaymentIntent, amountCents int64, reason string) (string, error) {
	if amountCents <= 0 || amountCents > intent.AmountCents {
		return "", fmt.Errorf("%w: refund %d of %d", ErrInvalidAmount, amountCents, intent.AmountCents)
	}
	if intent.ProviderPaymentID == "" {
		return "", fmt.Errorf("intent %s has no captured payment", intent.ID)
	}

	body := map[string]any{
		"amount": amountCents,
		"notes":  map[string]string{"reason": reason},
	}

	var resp instantRefundResponse
	if err := g.do(ctx, http.MethodPost, "/v1/payments/"+intent.ProviderPaymentID+"/refund", body, &resp); err != nil {
		return "", fmt.Errorf("create instant refund: %w", err)
	}

	return resp.ID, nil
}

func (g *InstantGateway) sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// paymentCaptured запрашивает статус платежа у процессора. Ошибка сети
// здесь не фатальна: проверка нужна только чтобы пометить сверку.
func (g *InstantGateway) paymentCaptured(ctx context.Context, paymentID string) (bool, string) {
	var resp instantPaymentResponse
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp); err != nil {
		return false, ""
	}
	return resp.Status == "captured", resp.Status
}

func (g *InstantGateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
