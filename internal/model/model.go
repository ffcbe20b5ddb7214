// Package model содержит доменные сущности маркетплейса стройматериалов.
package model

import "time"

// SupplierClass описывает категорию поставщика, от которой зависят
// комиссия и скидка на доставку.
type SupplierClass string

const (
	SupplierClassLocal       SupplierClass = "local"
	SupplierClassDistributor SupplierClass = "distributor"
	SupplierClassPremium     SupplierClass = "premium"
)

// Supplier представляет снимок данных поставщика на момент ранжирования.
// Запись только читается: ядро её не изменяет и не хранит.
type Supplier struct {
	ID                   string
	Name                 string
	Class                SupplierClass
	Rating               float64 // 1.0–5.0
	DistanceKM           float64
	Verified             bool
	LocalBadge           bool
	ReviewCount          int
	ResponseTimeHours    float64
	DeliveryReliability  float64 // 0–100
	PriceCompetitiveness float64 // 0.0–1.0
}

// Product описывает позицию каталога вместе с её поставщиком.
// Денежные поля хранятся в минорных единицах валюты.
type Product struct {
	ID                string
	Name              string
	UnitPriceCents    int64
	Quantity          int64
	DeliveryCostCents int64
	Supplier          Supplier
}

// IntentStatus описывает статус платёжного намерения.
// Статусы переходят только вперёд: из SUCCEEDED регресса нет.
type IntentStatus string

const (
	IntentStatusPending    IntentStatus = "PENDING"
	IntentStatusProcessing IntentStatus = "PROCESSING"
	IntentStatusSucceeded  IntentStatus = "SUCCEEDED"
	IntentStatusFailed     IntentStatus = "FAILED"
	IntentStatusCancelled  IntentStatus = "CANCELLED"
)

// Terminal сообщает, является ли статус конечным.
func (s IntentStatus) Terminal() bool {
	return s == IntentStatusSucceeded || s == IntentStatusFailed || s == IntentStatusCancelled
}

// PaymentIntent описывает одну попытку оплаты заказа через внешний шлюз.
type PaymentIntent struct {
	ID                  string
	OrderID             string
	AmountCents         int64
	Currency            string
	Gateway             string
	Status              IntentStatus
	ProviderID          string // идентификатор намерения на стороне процессора
	ProviderPaymentID   string // идентификатор платежа, известен после подтверждения
	ClientSecret        string
	CustomerEmail       string
	CustomerName        string
	CustomerPhone       string
	Metadata            map[string]string
	FeeCents            int64
	TotalCents          int64
	NeedsReconciliation bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RefundStatus описывает исход возврата средств. Возврат записывается
// после ответа шлюза, поэтому промежуточных статусов нет.
type RefundStatus string

const (
	RefundStatusSucceeded RefundStatus = "SUCCEEDED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

// Refund описывает возврат по успешному платёжному намерению.
type Refund struct {
	ID               string
	IntentID         string
	AmountCents      int64
	Reason           string
	Status           RefundStatus
	ProviderRefundID string
	CreatedAt        time.Time
}

// CheckoutRequest содержит данные запроса на оплату от внешнего слоя.
// Сумма передаётся в основных единицах валюты и конвертируется сервисом.
type CheckoutRequest struct {
	Amount        float64
	Currency      string
	Gateway       string
	OrderID       string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	Metadata      map[string]string
}

// SettlementResult содержит итог расчёта по платёжному намерению,
// возвращаемый внешнему слою.
type SettlementResult struct {
	Status         IntentStatus `json:"status"`
	IntentID       string       `json:"intent_id"`
	FinalAmount    float64      `json:"final_amount"`
	TransactionFee float64      `json:"transaction_fee"`
	Gateway        string       `json:"gateway"`
	Reason         string       `json:"reason,omitempty"`
}
