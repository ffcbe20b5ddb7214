// Package gateway содержит общий контракт платёжных шлюзов и адаптеры
// двух внешних процессоров: карточного и системы мгновенных платежей.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/pariyaakshat0-collab/bricks-bazar-advanced2-sub001/internal/model"
)

// Tag идентифицирует платёжный шлюз.
type Tag string

const (
	TagCard    Tag = "card"
	TagInstant Tag = "instant"
)

// ErrGatewayUnavailable возвращается, если процессор недоступен по сети.
var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrInvalidAmount возвращается при сумме вне допустимых границ.
	ErrInvalidAmount = errors.New("invalid payment amount")
	// ErrSignatureMismatch возвращается при расхождении подписи подтверждения.
	// Подтверждение с такой ошибкой всегда считается неуспешным.
	ErrSignatureMismatch = errors.New("confirmation signature mismatch")
)

// CreateRequest содержит данные для создания платёжного намерения
// на стороне процессора.
type CreateRequest struct {
	AmountCents   int64
	Currency      string
	OrderID       string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	Metadata      map[string]string
}

// Intent содержит данные намерения, созданного процессором.
type Intent struct {
	ProviderID   string
	ClientSecret string
	Status       string
}

// Confirmation содержит присланные клиентом данные подтверждения оплаты.
// Данные не являются доверенными и перепроверяются на стороне сервера.
type Confirmation struct {
	PaymentID string
	Signature string
}

// ConfirmResult содержит результат серверной проверки подтверждения.
type ConfirmResult struct {
	Succeeded      bool
	ProviderStatus string
	Reason         string
	// CapturedUpstream сообщает, что процессор отчитался о списании,
	// хотя локальное подтверждение не прошло. Такие намерения помечаются
	// для ручной сверки.
	CapturedUpstream bool
}

// Gateway описывает контракт адаптера внешнего платёжного процессора.
// Адаптеры конструируются один раз при старте и передаются оркестратору.
type Gateway interface {
	Tag() Tag
	CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error)
	Confirm(ctx context.Context, intent *model.PaymentIntent, conf Confirmation) (ConfirmResult, error)
	Refund(ctx context.Context, intent *model.PaymentIntent, amountCents int64, reason string) (string, error)
	Fee(amountCents int64) int64
	// CheckCaptured запрашивает у процессора, было ли списание по намерению.
	// Используется сверкой неоднозначных отказов.
	CheckCaptured(ctx context.Context, intent *model.PaymentIntent) (bool, string, error)
}

// feeCents вычисляет комиссию шлюза в минорных единицах.
// Округление выполняется один раз, на итоговой сумме, чтобы ошибка
// округления не накапливалась между шагами.
func feeCents(amountCents int64, rate float64, fixedCents int64) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromFloat(rate)).
		Add(decimal.NewFromInt(fixedCents)).
		Round(0).
		IntPart()
}
