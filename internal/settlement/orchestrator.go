// Package settlement реализует оркестрацию платёжного цикла: создание
// намерения, серверное подтверждение и возвраты через внешние шлюзы.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/gateway"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/validation"
)

// ErrUnknownGateway возвращается при неизвестном теге шлюза.
// Ошибка "намерение не найдено" приходит из хранилища и пробрасывается
// как repository.ErrIntentNotFound без переупаковки.
var (
	ErrUnknownGateway = errors.New("unknown payment gateway")
	// ErrInvalidCurrency возвращается при неподдерживаемой валюте.
	ErrInvalidCurrency = errors.New("invalid currency")
	// ErrInvalidState возвращается при операции, недопустимой для текущего
	// статуса намерения. Это ошибка использования, а не временный сбой.
	ErrInvalidState = errors.New("invalid intent state for operation")
)

// Repository описывает контракт хранилища платёжных намерений и возвратов.
type Repository interface {
	CreateIntent(ctx context.Context, intent *model.PaymentIntent) error
	GetIntent(ctx context.Context, id string) (*model.PaymentIntent, error)
	// UpdateIntentStatus атомарно переводит намерение из статуса from в to
	// и сообщает, произошёл ли переход.
	UpdateIntentStatus(ctx context.Context, id string, from, to model.IntentStatus) (bool, error)
	// MarkIntentSucceeded фиксирует успешное подтверждение: платёж процессора,
	// комиссию и итоговую сумму. Переход выполняется только из PROCESSING.
	MarkIntentSucceeded(ctx context.Context, id, providerPaymentID string, feeCents, totalCents int64) (bool, error)
	MarkIntentFailed(ctx context.Context, id, providerPaymentID string, needsReconciliation bool) error
	CreateRefund(ctx context.Context, refund *model.Refund) error
	SumRefunded(ctx context.Context, intentID string) (int64, error)
	GetRefundsByIntent(ctx context.Context, intentID string) ([]model.Refund, error)
	IntentsForReconciliation(ctx context.Context, limit int) ([]model.PaymentIntent, error)
	ResolveReconciliation(ctx context.Context, id string) error
}

// Orchestrator управляет жизненным циклом платёжных намерений.
// Шлюзы конструируются один раз при старте и передаются сюда явно.
type Orchestrator struct {
	repo         Repository
	gateways     map[gateway.Tag]gateway.Gateway
	logger       *zap.Logger
	ceilingCents int64

	// locks сериализует операции над одним намерением внутри процесса:
	// выигрывает первое подтверждение, повторное возвращает сохранённый
	// результат. Пул фиксированного размера, идентификатор намерения
	// хэшируется в страйп, поэтому память не растёт с числом намерений.
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

// NewOrchestrator создаёт оркестратор с внедрёнными адаптерами шлюзов.
func NewOrchestrator(repo Repository, gateways []gateway.Gateway, ceilingCents int64, logger *zap.Logger) *Orchestrator {
	byTag := make(map[gateway.Tag]gateway.Gateway, len(gateways))
	for _, g := range gateways {
		byTag[g.Tag()] = g
	}

	return &Orchestrator{
		repo:         repo,
		gateways:     byTag,
		logger:       logger,
		ceilingCents: ceilingCents,
	}
}

// CreateIntent проверяет запрос и создаёт платёжное намерение через
// выбранный шлюз. Сумма и валюта валидируются до сетевого вызова.
func (o *Orchestrator) CreateIntent(ctx context.Context, req model.CheckoutRequest) (*model.PaymentIntent, error) {
	amountCents := validation.ToCents(req.Amount)
	if !validation.IsValidAmount(amountCents, o.ceilingCents) {
		return nil, fmt.Errorf("%w: %d", gateway.ErrInvalidAmount, amountCents)
	}

	currency := validation.NormalizeCurrency(req.Currency)
	if !validation.IsValidCurrency(currency) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, req.Currency)
	}

	gw, ok := o.gateways[gateway.Tag(req.Gateway)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, req.Gateway)
	}

	created, err := gw.CreateIntent(ctx, gateway.CreateRequest{
		AmountCents:   amountCents,
		Currency:      currency,
		OrderID:       req.OrderID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create intent via %s: %w", req.Gateway, err)
	}

	now := time.Now()
	intent := &model.PaymentIntent{
		ID:            uuid.NewString(),
		OrderID:       req.OrderID,
		AmountCents:   amountCents,
		Currency:      currency,
		Gateway:       req.Gateway,
		Status:        model.IntentStatusPending,
		ProviderID:    created.ProviderID,
		ClientSecret:  created.ClientSecret,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Metadata:      req.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := o.repo.CreateIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("store intent: %w", err)
	}

	o.logger.Info("payment intent created",
		zap.String("intentID", intent.ID),
		zap.String("gateway", intent.Gateway),
		zap.Int64("amount", intent.AmountCents))

	return intent, nil
}

// Confirm выполняет серверное подтверждение намерения. Повторное
// подтверждение уже успешного намерения идемпотентно возвращает
// сохранённый результат. Любая ошибка шлюза переводит намерение в FAILED;
// ретрай означает создание нового намерения.
func (o *Orchestrator) Confirm(ctx context.Context, intentID string, conf gateway.Confirmation) (*model.SettlementResult, error) {
	lock := o.lockFor(intentID)
	lock.Lock()
	defer lock.Unlock()

	intent, err := o.repo.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status == model.IntentStatusSucceeded {
		return succeededResult(intent), nil
	}
	if intent.Status != model.IntentStatusPending {
		return nil, fmt.Errorf("%w: confirm from %s", ErrInvalidState, intent.Status)
	}

	moved, err := o.repo.UpdateIntentStatus(ctx, intentID, model.IntentStatusPending, model.IntentStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("mark intent processing: %w", err)
	}
	if !moved {
		// Статус изменили извне; перечитываем и решаем заново.
		intent, err = o.repo.GetIntent(ctx, intentID)
		if err != nil {
			return nil, err
		}
		if intent.Status == model.IntentStatusSucceeded {
			return succeededResult(intent), nil
		}
		return nil, fmt.Errorf("%w: confirm from %s", ErrInvalidState, intent.Status)
	}

	gw, ok := o.gateways[gateway.Tag(intent.Gateway)]
	if !ok {
		o.failIntent(ctx, intentID, "", false)
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, intent.Gateway)
	}

	res, err := gw.Confirm(ctx, intent, conf)
	if err != nil {
		// Отмена или сбой не оставляют намерение в ожидании подтверждения.
		o.failIntent(ctx, intentID, conf.PaymentID, res.CapturedUpstream)

		if errors.Is(err, gateway.ErrSignatureMismatch) {
			o.logger.Warn("confirmation signature mismatch",
				zap.String("intentID", intentID),
				zap.Bool("capturedUpstream", res.CapturedUpstream))
			return nil, err
		}
		return nil, fmt.Errorf("confirm via %s: %w", intent.Gateway, err)
	}

	if !res.Succeeded {
		o.failIntent(ctx, intentID, conf.PaymentID, res.CapturedUpstream)
		return &model.SettlementResult{
			Status:   model.IntentStatusFailed,
			IntentID: intentID,
			Gateway:  intent.Gateway,
			Reason:   res.Reason,
		}, nil
	}

	fee := gw.Fee(intent.AmountCents)
	total := intent.AmountCents + fee

	moved, err = o.repo.MarkIntentSucceeded(ctx, intentID, conf.PaymentID, fee, total)
	if err != nil {
		return nil, fmt.Errorf("mark intent succeeded: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: intent %s left processing state", ErrInvalidState, intentID)
	}

	o.logger.Info("payment confirmed",
		zap.String("intentID", intentID),
		zap.String("gateway", intent.Gateway),
		zap.Int64("fee", fee),
		zap.Int64("total", total))

	intent.Status = model.IntentStatusSucceeded
	intent.FeeCents = fee
	intent.TotalCents = total
	return succeededResult(intent), nil
}

// Refund создаёт возврат по успешному намерению. Возврат из любого
// другого статуса — ошибка использования. Сумма возвратов накопительно
// не может превысить исходную сумму платежа; превышение отклоняется,
// а не зажимается молча.
func (o *Orchestrator) Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*model.Refund, error) {
	lock := o.lockFor(intentID)
	lock.Lock()
	defer lock.Unlock()

	intent, err := o.repo.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status != model.IntentStatusSucceeded {
		return nil, fmt.Errorf("%w: refund from %s", ErrInvalidState, intent.Status)
	}

	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: %d", gateway.ErrInvalidAmount, amountCents)
	}

	refunded, err := o.repo.SumRefunded(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("sum refunded: %w", err)
	}
	if refunded+amountCents > intent.AmountCents {
		return nil, fmt.Errorf("%w: refund %d exceeds remaining %d",
			gateway.ErrInvalidAmount, amountCents, intent.AmountCents-refunded)
	}

	gw, ok := o.gateways[gateway.Tag(intent.Gateway)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, intent.Gateway)
	}

	providerRefundID, err := gw.Refund(ctx, intent, amountCents, reason)
	if err != nil {
		// Неудачная попытка остаётся в истории как FAILED: она не входит
		// в сумму возвратов, но видна при разборе инцидента.
		failed := &model.Refund{
			ID:          uuid.NewString(),
			IntentID:    intentID,
			AmountCents: amountCents,
			Reason:      reason,
			Status:      model.RefundStatusFailed,
			CreatedAt:   time.Now(),
		}
		if storeErr := o.repo.CreateRefund(ctx, failed); storeErr != nil {
			o.logger.Error("store failed refund error",
				zap.String("intentID", intentID),
				zap.Error(storeErr))
		}
		return nil, fmt.Errorf("refund via %s: %w", intent.Gateway, err)
	}

	refund := &model.Refund{
		ID:               uuid.NewString(),
		IntentID:         intentID,
		AmountCents:      amountCents,
		Reason:           reason,
		Status:           model.RefundStatusSucceeded,
		ProviderRefundID: providerRefundID,
		CreatedAt:        time.Now(),
	}

	if err := o.repo.CreateRefund(ctx, refund); err != nil {
		return nil, fmt.Errorf("store refund: %w", err)
	}

	o.logger.Info("refund created",
		zap.String("intentID", intentID),
		zap.String("refundID", refund.ID),
		zap.Int64("amount", amountCents))

	return refund, nil
}

// Cancel прекращает намерение до подтверждения. Отмена возможна только
// из PENDING; повторная отмена идемпотентна. Деньги ещё не списаны,
// поэтому обращения к шлюзу не требуется.
func (o *Orchestrator) Cancel(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	lock := o.lockFor(intentID)
	lock.Lock()
	defer lock.Unlock()

	intent, err := o.repo.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status == model.IntentStatusCancelled {
		return intent, nil
	}
	if intent.Status != model.IntentStatusPending {
		return nil, fmt.Errorf("%w: cancel from %s", ErrInvalidState, intent.Status)
	}

	moved, err := o.repo.UpdateIntentStatus(ctx, intentID, model.IntentStatusPending, model.IntentStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("mark intent cancelled: %w", err)
	}
	if !moved {
		intent, err = o.repo.GetIntent(ctx, intentID)
		if err != nil {
			return nil, err
		}
		if intent.Status == model.IntentStatusCancelled {
			return intent, nil
		}
		return nil, fmt.Errorf("%w: cancel from %s", ErrInvalidState, intent.Status)
	}

	o.logger.Info("payment intent cancelled",
		zap.String("intentID", intentID))

	intent.Status = model.IntentStatusCancelled
	return intent, nil
}

// GetIntent возвращает платёжное намерение по идентификатору.
func (o *Orchestrator) GetIntent(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return o.repo.GetIntent(ctx, intentID)
}

// Refunds возвращает возвраты по намерению в порядке создания.
func (o *Orchestrator) Refunds(ctx context.Context, intentID string) ([]model.Refund, error) {
	if _, err := o.repo.GetIntent(ctx, intentID); err != nil {
		return nil, err
	}
	return o.repo.GetRefundsByIntent(ctx, intentID)
}

// failIntent переводит намерение в FAILED. Запись выполняется даже при
// отменённом исходном контексте, чтобы намерение не зависло в ожидании.
func (o *Orchestrator) failIntent(ctx context.Context, intentID, providerPaymentID string, needsReconciliation bool) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := o.repo.MarkIntentFailed(writeCtx, intentID, providerPaymentID, needsReconciliation); err != nil {
		o.logger.Error("mark intent failed error",
			zap.String("intentID", intentID),
			zap.Error(err))
	}
	if needsReconciliation {
		o.logger.Warn("intent flagged for manual reconciliation",
			zap.String("intentID", intentID))
	}
}

func (o *Orchestrator) lockFor(intentID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(intentID))
	return &o.locks[h.Sum32()%lockStripes]
}

func succeededResult(intent *model.PaymentIntent) *model.SettlementResult {
	return &model.SettlementResult{
		Status:         model.IntentStatusSucceeded,
		IntentID:       intent.ID,
		FinalAmount:    float64(intent.TotalCents) / 100,
		TransactionFee: float64(intent.FeeCents) / 100,
		Gateway:        intent.Gateway,
	}
}
