// Package ranking реализует честное ранжирование поставщиков:
// расчёт композитного балла, комиссий и стоимости позиций каталога.
package ranking

import (
	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
)

// WeightConfig содержит веса составляющих честного балла.
// Веса неотрицательны и не обязаны давать в сумме единицу.
type WeightConfig struct {
	LocalBoost   float64 `json:"local_boost"`
	Verification float64 `json:"verification"`
	Rating       float64 `json:"rating"`
	Proximity    float64 `json:"proximity"`
	Price        float64 `json:"price"`
}

// DefaultWeights возвращает веса по умолчанию. Цена намеренно несёт
// наименьший вес: ранжирование существует, чтобы чистая ценовая
// конкуренция не вытесняла малых локальных поставщиков.
func DefaultWeights() WeightConfig {
	return WeightConfig{
		LocalBoost:   0.30,
		Verification: 0.20,
		Rating:       0.25,
		Proximity:    0.15,
		Price:        0.10,
	}
}

// Valid проверяет, что все веса неотрицательны.
func (w WeightConfig) Valid() bool {
	return w.LocalBoost >= 0 && w.Verification >= 0 && w.Rating >= 0 &&
		w.Proximity >= 0 && w.Price >= 0
}

// DefaultMaxDistanceKM — радиус, за пределами которого близость
// поставщика не даёт вклада в балл.
const DefaultMaxDistanceKM = 50.0

// FairScore вычисляет честный балл поставщика в диапазоне [0,1].
// Некорректные входные значения зажимаются в допустимые границы,
// а не отклоняются: ранжирование не должно падать из-за кривой записи.
func FairScore(s model.Supplier, w WeightConfig, maxDistanceKM float64) float64 {
	w = clampWeights(w)
	if maxDistanceKM <= 0 {
		maxDistanceKM = DefaultMaxDistanceKM
	}

	score := 0.0

	if s.Class == model.SupplierClassLocal && s.LocalBadge {
		score += w.LocalBoost
	}

	if s.Verified {
		score += w.Verification
	}

	rating := clamp(s.Rating, 1, 5)
	score += w.Rating * (rating - 1) / 4

	distance := s.DistanceKM
	if distance < 0 {
		distance = 0
	}
	proximity := 1 - distance/maxDistanceKM
	if proximity < 0 {
		proximity = 0
	}
	score += w.Proximity * proximity

	score += w.Price * clamp(s.PriceCompetitiveness, 0, 1)

	return clamp(score, 0, 1)
}

func clampWeights(w WeightConfig) WeightConfig {
	if w.LocalBoost < 0 {
		w.LocalBoost = 0
	}
	if w.Verification < 0 {
		w.Verification = 0
	}
	if w.Rating < 0 {
		w.Rating = 0
	}
	if w.Proximity < 0 {
		w.Proximity = 0
	}
	if w.Price < 0 {
		w.Price = 0
	}
	return w
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
