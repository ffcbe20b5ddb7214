package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/gateway"
)

const (
	reconcileInterval  = 30 * time.Second
	reconcileBatchSize = 100
)

// StartReconciliation запускает фоновый процесс сверки намерений,
// помеченных как неоднозначные: локально платёж неуспешен, но процессор
// мог отчитаться о списании. Процесс только перепроверяет статус у
// процессора и логирует расхождения; деньги он не двигает.
// Вызов блокирует до отмены контекста.
func (o *Orchestrator) StartReconciliation(ctx context.Context) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.reconcileBatch(ctx)
		}
	}
}

func (o *Orchestrator) reconcileBatch(ctx context.Context) {
	intents, err := o.repo.IntentsForReconciliation(ctx, reconcileBatchSize)
	if err != nil {
		o.logger.Error("load intents for reconciliation error", zap.Error(err))
		return
	}

	for _, intent := range intents {
		gw, ok := o.gateways[gateway.Tag(intent.Gateway)]
		if !ok {
			continue
		}

		captured, status, err := gw.CheckCaptured(ctx, &intent)
		if err != nil {
			// Процессор недоступен или платёж неизвестен; попробуем позже.
			continue
		}

		if captured {
			// Деньги списаны без локального успеха. Флаг остаётся,
			// разбор за оператором.
			o.logger.Warn("reconciliation: processor reports captured payment for failed intent",
				zap.String("intentID", intent.ID),
				zap.String("gateway", intent.Gateway),
				zap.String("providerStatus", status))
			continue
		}

		if err := o.repo.ResolveReconciliation(ctx, intent.ID); err != nil {
			o.logger.Error("resolve reconciliation error",
				zap.String("intentID", intent.ID),
				zap.Error(err))
			continue
		}

		o.logger.Info("reconciliation resolved: no upstream charge",
			zap.String("intentID", intent.ID),
			zap.String("providerStatus", status))
	}
}
