package ranking

import (
	"sort"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
)

// Названия бейджей доверия, производных от атрибутов поставщика.
// Бейджи не хранятся и вычисляются заново при каждом ранжировании.
const (
	BadgeVerifiedSupplier = "Verified Supplier"
	BadgeLocalVerified    = "Local Verified"
	BadgeTopRated         = "Top Rated"
	BadgeReliableDelivery = "Reliable Delivery"
	BadgeQuickResponse    = "Quick Response"
)

// Пороговые значения бейджей.
const (
	topRatedMinRating      = 4.5
	reliableMinReliability = 95.0
	quickMaxResponseHours  = 2.0
)

// RankedProduct содержит позицию каталога с баллом, бейджами
// и разбивкой стоимости.
type RankedProduct struct {
	Product         model.Product
	FairnessScore   float64
	TrustBadges     []string
	ProductCost     int64
	DeliveryCost    int64
	TotalCost       int64
	Savings         int64
	CommissionRate  float64
	CommissionCents int64
}

// Rank сортирует позиции каталога по убыванию честного балла.
// Сортировка стабильная: позиции с равным баллом сохраняют исходный
// относительный порядок. Результат вычисляется заново при каждом вызове
// по текущим весам, без кеширования.
func Rank(items []model.Product, w WeightConfig, maxDistanceKM float64, policy Policy) []RankedProduct {
	ranked := make([]RankedProduct, 0, len(items))

	for _, item := range items {
		productCost := item.UnitPriceCents * item.Quantity
		totalCost := productCost + item.DeliveryCostCents

		ranked = append(ranked, RankedProduct{
			Product:         item,
			FairnessScore:   FairScore(item.Supplier, w, maxDistanceKM),
			TrustBadges:     TrustBadges(item.Supplier),
			ProductCost:     productCost,
			DeliveryCost:    item.DeliveryCostCents,
			TotalCost:       totalCost,
			Savings:         policy.DeliverySavings(item.Supplier.Class, item.DeliveryCostCents),
			CommissionRate:  policy.CommissionRate(item.Supplier.Class),
			CommissionCents: policy.Commission(item.Supplier.Class, totalCost),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FairnessScore > ranked[j].FairnessScore
	})

	return ranked
}

// TrustBadges возвращает список бейджей доверия поставщика.
// Список может быть пустым.
func TrustBadges(s model.Supplier) []string {
	badges := make([]string, 0, 5)

	if s.Verified {
		badges = append(badges, BadgeVerifiedSupplier)
	}
	if s.Class == model.SupplierClassLocal && s.LocalBadge {
		badges = append(badges, BadgeLocalVerified)
	}
	if s.Rating >= topRatedMinRating {
		badges = append(badges, BadgeTopRated)
	}
	if s.DeliveryReliability >= reliableMinReliability {
		badges = append(badges, BadgeReliableDelivery)
	}
	if s.ResponseTimeHours <= quickMaxResponseHours {
		badges = append(badges, BadgeQuickResponse)
	}

	return badges
}
