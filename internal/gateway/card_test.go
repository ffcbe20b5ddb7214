package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
)

func TestCardCreateIntent_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/payment_intents" {
			t.Fatalf("path = %s, want /v1/payment_intents", r.URL.Path)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "order-1" {
			t.Fatalf("idempotency key = %q, want order-1", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Fatalf("authorization = %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["currency"] != "inr" {
			t.Fatalf("currency = %v, want inr", body["currency"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cardIntentResponse{
			ID:           "pi_123",
			ClientSecret: "pi_123_secret",
			Status:       "requires_confirmation",
		})
	}))
	defer ts.Close()

	g := NewCardGateway(ts.URL, "sk_test", 1_000_000)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	intent, err := g.CreateIntent(ctx, CreateRequest{
		AmountCents: 50000,
		Currency:    "INR",
		OrderID:     "order-1",
	})
	if err != nil {
		t.Fatalf("CreateIntent error: %v", err)
	}
	if intent.ProviderID != "pi_123" || intent.ClientSecret != "pi_123_secret" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}

func TestCardCreateIntent_InvalidAmountBeforeNetwork(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	g := NewCardGateway(ts.URL, "sk_test", 1000)

	for _, amount := range []int64{0, -5, 1001} {
		_, err := g.CreateIntent(context.Background(), CreateRequest{AmountCents: amount, Currency: "INR"})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: err = %v, want ErrInvalidAmount", amount, err)
		}
	}

	if called {
		t.Fatalf("processor must not be called for invalid amounts")
	}
}

func TestCardConfirm_RefetchesStatus(t *testing.T) {
	status := "processing"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents/pi_123" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(cardIntentResponse{ID: "pi_123", Status: status})
	}))
	defer ts.Close()

	g := NewCardGateway(ts.URL, "sk_test", 1_000_000)
	intent := &model.PaymentIntent{ID: "int-1", ProviderID: "pi_123"}

	res, err := g.Confirm(context.Background(), intent, Confirmation{PaymentID: "ignored"})
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if res.Succeeded {
		t.Fatalf("processing intent must not confirm")
	}

	status = "succeeded"
	res, err = g.Confirm(context.Background(), intent, Confirmation{})
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if !res.Succeeded || res.ProviderStatus != "succeeded" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCardRefund_OverOriginalAmount(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	g := NewCardGateway(ts.URL, "sk_test", 1_000_000)
	intent := &model.PaymentIntent{ID: "int-1", ProviderID: "pi_123", AmountCents: 5000}

	if _, err := g.Refund(context.Background(), intent, 5001, "damaged goods"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	if called {
		t.Fatalf("processor must not be called for invalid refund amount")
	}
}

func TestCardRefund_Partial(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents/pi_123/refunds" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["amount"] != float64(2000) {
			t.Fatalf("amount = %v, want 2000", body["amount"])
		}
		_ = json.NewEncoder(w).Encode(cardRefundResponse{ID: "re_1"})
	}))
	defer ts.Close()

	g := NewCardGateway(ts.URL, "sk_test", 1_000_000)
	intent := &model.PaymentIntent{ID: "int-1", ProviderID: "pi_123", AmountCents: 5000}

	refundID, err := g.Refund(context.Background(), intent, 2000, "short delivery")
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if refundID != "re_1" {
		t.Fatalf("refund id = %q, want re_1", refundID)
	}
}

func TestCardFee(t *testing.T) {
	g := NewCardGateway("http://card.example.com", "sk_test", 1_000_000)

	tests := []struct {
		amount int64
		want   int64
	}{
		{10000, 320}, // 290 + 30
		{999, 59},    // 28.971 + 30 = 58.971, округляется один раз
		{1, 30},      // 0.029 + 30 = 30.029
	}

	for _, tt := range tests {
		if got := g.Fee(tt.amount); got != tt.want {
			t.Fatalf("Fee(%d) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}
