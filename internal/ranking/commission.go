package ranking

import (
	"github.com/shopspring/decimal"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
)

// Policy содержит бизнес-константы комиссий и скидок. Значения вынесены
// в конфигурируемую структуру, а не зашиты в код: их обоснование задаётся
// бизнесом и может меняться без миграции данных.
type Policy struct {
	// BaseCommissionRate — базовая доля комиссии от суммы заказа.
	BaseCommissionRate float64
	// LocalFactor — множитель комиссии для локальных поставщиков.
	LocalFactor float64
	// DistributorFactor — множитель комиссии для дистрибьюторов.
	DistributorFactor float64
	// LocalDeliverySavingsRate — доля стоимости доставки, показываемая
	// как экономия при заказе у локального поставщика.
	LocalDeliverySavingsRate float64
}

// DefaultPolicy возвращает действующие значения комиссий и скидок.
func DefaultPolicy() Policy {
	return Policy{
		BaseCommissionRate:       0.05,
		LocalFactor:              0.6,
		DistributorFactor:        1.4,
		LocalDeliverySavingsRate: 0.3,
	}
}

// CommissionRate возвращает долю комиссии для категории поставщика.
// Политика дискретная: три категории, без интерполяции.
func (p Policy) CommissionRate(class model.SupplierClass) float64 {
	switch class {
	case model.SupplierClassLocal:
		return p.BaseCommissionRate * p.LocalFactor
	case model.SupplierClassDistributor:
		return p.BaseCommissionRate * p.DistributorFactor
	default:
		return p.BaseCommissionRate
	}
}

// Commission вычисляет комиссию в минорных единицах от суммы заказа.
// Округление выполняется один раз, на итоговой сумме.
func (p Policy) Commission(class model.SupplierClass, orderValueCents int64) int64 {
	rate := decimal.NewFromFloat(p.CommissionRate(class))
	return decimal.NewFromInt(orderValueCents).Mul(rate).Round(0).IntPart()
}

// DeliverySavings вычисляет экономию на доставке в минорных единицах.
// Экономия начисляется только локальным поставщикам.
func (p Policy) DeliverySavings(class model.SupplierClass, deliveryCostCents int64) int64 {
	if class != model.SupplierClassLocal {
		return 0
	}
	rate := decimal.NewFromFloat(p.LocalDeliverySavingsRate)
	return decimal.NewFromInt(deliveryCostCents).Mul(rate).Round(0).IntPart()
}
