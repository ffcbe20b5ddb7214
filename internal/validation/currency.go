// Package validation содержит функции валидации и нормализации входных данных.
package validation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Валюты, в которых маркетплейс принимает оплату.
var supportedCurrencies = map[string]struct{}{
	"INR": {},
	"USD": {},
	"EUR": {},
	"AED": {},
}

// IsValidCurrency проверяет, что код валюты трёхбуквенный и поддерживается.
func IsValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	_, ok := supportedCurrencies[code]
	return ok
}

// NormalizeCurrency приводит код валюты к верхнему регистру.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidAmount проверяет, что сумма в минорных единицах положительна
// и не превышает заданный потолок.
func IsValidAmount(amountCents, ceilingCents int64) bool {
	return amountCents > 0 && amountCents <= ceilingCents
}

// ToCents переводит сумму из основных единиц валюты в минорные.
// Сумма округляется до ближайшего целого: прямое приведение через
// int64(amount * 100) усекает двоичное представление и искажает
// половину допустимых десятичных сумм (19.99 → 1998).
func ToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).
		Mul(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
