package service

import (
	"context"
	"sync"
	"testing"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/gateway"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/ranking"
)

type stubSettler struct {
	intent     *model.PaymentIntent
	result     *model.SettlementResult
	refund     *model.Refund
	err        error
	lastAmount int64
}

func (s *stubSettler) CreateIntent(ctx context.Context, req model.CheckoutRequest) (*model.PaymentIntent, error) {
	return s.intent, s.err
}

func (s *stubSettler) Confirm(ctx context.Context, intentID string, conf gateway.Confirmation) (*model.SettlementResult, error) {
	return s.result, s.err
}

func (s *stubSettler) Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*model.Refund, error) {
	s.lastAmount = amountCents
	return s.refund, s.err
}

func (s *stubSettler) Refunds(ctx context.Context, intentID string) ([]model.Refund, error) {
	if s.refund == nil {
		return nil, s.err
	}
	return []model.Refund{*s.refund}, s.err
}

func (s *stubSettler) Cancel(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return s.intent, s.err
}

func (s *stubSettler) GetIntent(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return s.intent, s.err
}

func TestUpdateWeights_RejectsNegative(t *testing.T) {
	svc := NewService(&stubSettler{})

	err := svc.UpdateWeights(ranking.WeightConfig{LocalBoost: -0.1})
	if err == nil {
		t.Fatalf("expected error for negative weights")
	}

	// Конфигурация не должна была измениться.
	if got := svc.Weights(); got != ranking.DefaultWeights() {
		t.Fatalf("weights changed after invalid update: %+v", got)
	}
}

func TestRankProducts_UsesActiveWeights(t *testing.T) {
	svc := NewService(&stubSettler{})

	items := []model.Product{
		{ID: "far-local", UnitPriceCents: 100, Quantity: 1, Supplier: model.Supplier{ID: "l", Class: model.SupplierClassLocal, LocalBadge: true, Rating: 3, DistanceKM: 45, PriceCompetitiveness: 0.1}},
		{ID: "cheap-premium", UnitPriceCents: 100, Quantity: 1, Supplier: model.Supplier{ID: "p", Class: model.SupplierClassPremium, Rating: 3, DistanceKM: 45, PriceCompetitiveness: 1.0}},
	}

	ranked := svc.RankProducts(context.Background(), items, nil)
	if ranked[0].Product.ID != "far-local" {
		t.Fatalf("default weights must favor local supplier, got %s first", ranked[0].Product.ID)
	}

	// Администратор убирает локальный буст и делает цену решающей.
	if err := svc.UpdateWeights(ranking.WeightConfig{Price: 1}); err != nil {
		t.Fatalf("UpdateWeights error: %v", err)
	}

	ranked = svc.RankProducts(context.Background(), items, nil)
	if ranked[0].Product.ID != "cheap-premium" {
		t.Fatalf("price-only weights must favor cheap supplier, got %s first", ranked[0].Product.ID)
	}
}

func TestRankProducts_OverrideDoesNotTouchActiveConfig(t *testing.T) {
	svc := NewService(&stubSettler{})

	override := ranking.WeightConfig{Price: 1}
	items := []model.Product{
		{ID: "a", UnitPriceCents: 100, Quantity: 1, Supplier: model.Supplier{Class: model.SupplierClassLocal, LocalBadge: true, Rating: 3, PriceCompetitiveness: 0}},
	}

	_ = svc.RankProducts(context.Background(), items, &override)

	if got := svc.Weights(); got != ranking.DefaultWeights() {
		t.Fatalf("override must not replace active weights: %+v", got)
	}
}

func TestWeights_ConcurrentAccess(t *testing.T) {
	svc := NewService(&stubSettler{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = svc.UpdateWeights(ranking.WeightConfig{Rating: float64(i)})
			} else {
				w := svc.Weights()
				if !w.Valid() {
					t.Errorf("read invalid weights: %+v", w)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestCheckoutDelegation(t *testing.T) {
	settler := &stubSettler{
		intent: &model.PaymentIntent{ID: "int-1"},
		result: &model.SettlementResult{IntentID: "int-1", Status: model.IntentStatusSucceeded},
		refund: &model.Refund{ID: "ref-1"},
	}
	svc := NewService(settler)

	intent, err := svc.CreateCheckout(context.Background(), model.CheckoutRequest{})
	if err != nil || intent.ID != "int-1" {
		t.Fatalf("CreateCheckout: %v, %+v", err, intent)
	}

	res, err := svc.ConfirmCheckout(context.Background(), "int-1", gateway.Confirmation{})
	if err != nil || res.Status != model.IntentStatusSucceeded {
		t.Fatalf("ConfirmCheckout: %v, %+v", err, res)
	}

	refund, err := svc.RefundCheckout(context.Background(), "int-1", 500, "damaged")
	if err != nil || refund.ID != "ref-1" {
		t.Fatalf("RefundCheckout: %v, %+v", err, refund)
	}
	if settler.lastAmount != 500 {
		t.Fatalf("refund amount = %d, want 500", settler.lastAmount)
	}
}
