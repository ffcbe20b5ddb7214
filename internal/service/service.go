// Package service реализует бизнес-логику маркетплейса: ранжирование
// каталога и проведение платежей.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/gateway"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/ranking"
)

// ErrInvalidWeights возвращается при попытке установить отрицательные веса.
var ErrInvalidWeights = errors.New("weights must be non-negative")

// Settler описывает контракт оркестратора платежей, используемый сервисом.
type Settler interface {
	CreateIntent(ctx context.Context, req model.CheckoutRequest) (*model.PaymentIntent, error)
	Confirm(ctx context.Context, intentID string, conf gateway.Confirmation) (*model.SettlementResult, error)
	Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*model.Refund, error)
	Refunds(ctx context.Context, intentID string) ([]model.Refund, error)
	Cancel(ctx context.Context, intentID string) (*model.PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*model.PaymentIntent, error)
}

// Service содержит бизнес-логику маркетплейса. Активные веса ранжирования
// настраиваются администратором на лету; каждый вызов ранжирования читает
// конфигурацию на момент вызова, результаты не кешируются.
type Service struct {
	settler       Settler
	policy        ranking.Policy
	maxDistanceKM float64

	weightsMu sync.RWMutex
	weights   ranking.WeightConfig
}

// NewService создаёт сервис с указанным оркестратором платежей
// и весами ранжирования по умолчанию.
func NewService(settler Settler) *Service {
	return &Service{
		settler:       settler,
		policy:        ranking.DefaultPolicy(),
		maxDistanceKM: ranking.DefaultMaxDistanceKM,
		weights:       ranking.DefaultWeights(),
	}
}

// RankProducts ранжирует позиции каталога. Если override не nil,
// используются переданные веса, иначе активная конфигурация.
func (s *Service) RankProducts(ctx context.Context, items []model.Product, override *ranking.WeightConfig) []ranking.RankedProduct {
	weights := s.Weights()
	if override != nil {
		weights = *override
	}
	return ranking.Rank(items, weights, s.maxDistanceKM, s.policy)
}

// Weights возвращает активную конфигурацию весов.
func (s *Service) Weights() ranking.WeightConfig {
	s.weightsMu.RLock()
	defer s.weightsMu.RUnlock()
	return s.weights
}

// UpdateWeights заменяет активную конфигурацию весов. Смена весов не
// требует миграции данных поставщиков: баллы пересчитываются при
// следующем ранжировании.
func (s *Service) UpdateWeights(w ranking.WeightConfig) error {
	if !w.Valid() {
		return ErrInvalidWeights
	}

	s.weightsMu.Lock()
	defer s.weightsMu.Unlock()
	s.weights = w
	return nil
}

// CreateCheckout создаёт платёжное намерение для запроса оплаты.
func (s *Service) CreateCheckout(ctx context.Context, req model.CheckoutRequest) (*model.PaymentIntent, error) {
	return s.settler.CreateIntent(ctx, req)
}

// ConfirmCheckout выполняет серверное подтверждение платёжного намерения.
func (s *Service) ConfirmCheckout(ctx context.Context, intentID string, conf gateway.Confirmation) (*model.SettlementResult, error) {
	return s.settler.Confirm(ctx, intentID, conf)
}

// RefundCheckout создаёт возврат по успешному платёжному намерению.
func (s *Service) RefundCheckout(ctx context.Context, intentID string, amountCents int64, reason string) (*model.Refund, error) {
	return s.settler.Refund(ctx, intentID, amountCents, reason)
}

// CancelCheckout отменяет неподтверждённое платёжное намерение.
func (s *Service) CancelCheckout(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return s.settler.Cancel(ctx, intentID)
}

// GetIntent возвращает платёжное намерение по идентификатору.
func (s *Service) GetIntent(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return s.settler.GetIntent(ctx, intentID)
}

// RefundsForIntent возвращает историю возвратов по платёжному намерению.
func (s *Service) RefundsForIntent(ctx context.Context, intentID string) ([]model.Refund, error) {
	return s.settler.Refunds(ctx, intentID)
}
