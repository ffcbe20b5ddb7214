package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
)

// Комиссия карточного шлюза: процент от суммы плюс фиксированная часть.
const (
	cardFeeRate       = 0.029
	cardFixedFeeCents = 30
)

// CardGateway — адаптер карточного процессора. Намерение создаётся и
// подтверждается через REST API процессора; подтверждение всегда
// перечитывает статус с сервера процессора и не доверяет данным клиента.
type CardGateway struct {
	baseURL        string
	apiKey         string
	maxAmountCents int64
	httpClient     *http.Client
}

// NewCardGateway создаёт адаптер карточного шлюза. Транспорт ретраит
// только сетевые сбои; создание намерения защищено заголовком
// Idempotency-Key, поэтому повтор запроса не приводит к двойному списанию.
func NewCardGateway(baseURL, apiKey string, maxAmountCents int64) *CardGateway {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &CardGateway{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		maxAmountCents: maxAmountCents,
		httpClient:     rc.StandardClient(),
	}
}

// Tag возвращает идентификатор шлюза.
func (g *CardGateway) Tag() Tag { return TagCard }

// Fee возвращает комиссию шлюза для указанной суммы в минорных единицах.
func (g *CardGateway) Fee(amountCents int64) int64 {
	return feeCents(amountCents, cardFeeRate, cardFixedFeeCents)
}

type cardIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type cardRefundResponse struct {
	ID string `json:"id"`
}

// CreateIntent создаёт платёжное намерение на стороне процессора.
// Сумма проверяется до сетевого вызова.
func (g *CardGateway) CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error) {
	if req.AmountCents <= 0 || req.AmountCents > g.maxAmountCents {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, req.AmountCents)
	}

	body := map[string]any{
		"amount":        req.AmountCents,
		"currency":      strings.ToLower(req.Currency),
		"order_id":      req.OrderID,
		"receipt_email": req.CustomerEmail,
		"metadata":      req.Metadata,
	}

	var resp cardIntentResponse
	if err := g.do(ctx, http.MethodPost, "/v1/payment_intents", req.OrderID, body, &resp); err != nil {
		return nil, fmt.Errorf("create card intent: %w", err)
	}

	return &Intent{
		ProviderID:   resp.ID,
		ClientSecret: resp.ClientSecret,
		Status:       resp.Status,
	}, nil
}

// Confirm перечитывает статус намерения с процессора. Присланный клиентом
// флаг успеха игнорируется: подтверждением считается только статус
// succeeded на стороне процессора.
func (g *CardGateway) Confirm(ctx context.Context, intent *model.PaymentIntent, _ Confirmation) (ConfirmResult, error) {
	var resp cardIntentResponse
	err := g.do(ctx, http.MethodGet, "/v1/payment_intents/"+intent.ProviderID, "", nil, &resp)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("fetch card intent: %w", err)
	}

	if resp.Status != "succeeded" {
		return ConfirmResult{
			Succeeded:      false,
			ProviderStatus: resp.Status,
			Reason:         fmt.Sprintf("processor reported status %q", resp.Status),
		}, nil
	}

	return ConfirmResult{
		Succeeded:      true,
		ProviderStatus: resp.Status,
	}, nil
}

// CheckCaptured перечитывает статус намерения у процессора.
func (g *CardGateway) CheckCaptured(ctx context.Context, intent *model.PaymentIntent) (bool, string, error) {
	var resp cardIntentResponse
	if err := g.do(ctx, http.MethodGet, "/v1/payment_intents/"+intent.ProviderID, "", nil, &resp); err != nil {
		return false, "", fmt.Errorf("fetch card intent: %w", err)
	}
	return resp.Status == "succeeded", resp.Status, nil
}

// Refund создаёт возврат по подтверждённому намерению. Частичные возвраты
// поддерживаются; сумма сверх исходной отклоняется.
func (g *CardGateway) Refund(ctx context.Context, intent *model.PaymentIntent, amountCents int64, reason string) (string, error) {
	if amountCents <= 0 || amountCents > intent.AmountCents {
		return "", fmt.Errorf("%w: refund %d of %d", ErrInvalidAmount, amountCents, intent.AmountCents)
	}

	body := map[string]any{
		"amount": amountCents,
		"reason": reason,
	}

	var resp cardRefundResponse
	if err := g.do(ctx, http.MethodPost, "/v1/payment_intents/"+intent.ProviderID+"/refunds", "", body, &resp); err != nil {
		return "", fmt.Errorf("create card refund: %w", err)
	}

	return resp.ID, nil
}

func (g *CardGateway) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
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

	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

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
