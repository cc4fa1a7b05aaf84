package api

import (
	"time"

	"github.com/lucaslcw/order-pipeline/common/money"
)

// OrderStatus is the order state machine. PENDING is the only initial state;
// PROCESSED and CANCELLED are terminal.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderProcessed OrderStatus = "PROCESSED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// CanTransitionTo reports whether the state machine allows moving from s to
// next. Terminal states allow nothing.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != OrderPending {
		return false
	}
	return next == OrderProcessed || next == OrderCancelled
}

// StockOperation is the sign of a ledger entry.
type StockOperation string

const (
	StockIncrease StockOperation = "INCREASE"
	StockDecrease StockOperation = "DECREASE"
)

func (op StockOperation) Valid() bool {
	return op == StockIncrease || op == StockDecrease
}

// PaymentStatus is the outcome recorded on a Transaction.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentDeclined PaymentStatus = "DECLINED"
	PaymentError    PaymentStatus = "ERROR"
)

// CustomerData identifies the customer on an order submission. CPF is the
// normalized 11-digit form once past ingress.
type CustomerData struct {
	CPF   string `bson:"cpf" json:"cpf"`
	Email string `bson:"email" json:"email"`
	Name  string `bson:"name" json:"name"`
}

// PaymentData carries raw card fields on the wire only. It is never persisted
// unmasked; see Transaction.CardData.
type PaymentData struct {
	CardNumber     string `json:"cardNumber"`
	CardHolderName string `json:"cardHolderName"`
	ExpiryMonth    string `json:"expiryMonth"`
	ExpiryYear     string `json:"expiryYear"`
	CVV            string `json:"cvv"`
}

// AddressData is the delivery address. Complement is optional.
type AddressData struct {
	Street       string `bson:"street" json:"street"`
	Number       string `bson:"number" json:"number"`
	Complement   string `bson:"complement,omitempty" json:"complement,omitempty"`
	Neighborhood string `bson:"neighborhood" json:"neighborhood"`
	City         string `bson:"city" json:"city"`
	State        string `bson:"state" json:"state"`
	ZipCode      string `bson:"zipCode" json:"zipCode"`
	Country      string `bson:"country" json:"country"`
}

// Lead is a deduplicated customer identity keyed by (email, cpf). At most one
// lead should exist per pair; a narrow find-or-create race can leave
// duplicates, and consumers treat any matching lead as valid.
type Lead struct {
	ID        string    `bson:"_id" json:"id"`
	CPF       string    `bson:"cpf" json:"cpf"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// OrderItem is a catalog-enriched line item. Prices are frozen at enrichment
// time; TotalPrice = UnitPrice * Quantity.
type OrderItem struct {
	ID              string       `bson:"id" json:"id"`
	Quantity        int          `bson:"quantity" json:"quantity"`
	ProductName     string       `bson:"productName" json:"productName"`
	UnitPrice       money.Amount `bson:"unitPrice" json:"unitPrice"`
	TotalPrice      money.Amount `bson:"totalPrice" json:"totalPrice"`
	HasStockControl bool         `bson:"hasStockControl" json:"hasStockControl"`
}

// Order is the order aggregate. Created PENDING by the order worker, mutated
// only by the update worker, never deleted.
type Order struct {
	ID            string       `bson:"_id" json:"id"`
	LeadID        string       `bson:"leadId" json:"leadId"`
	CustomerData  CustomerData `bson:"customerData" json:"customerData"`
	Items         []OrderItem  `bson:"items" json:"items"`
	TotalItems    int          `bson:"totalItems" json:"totalItems"`
	TotalValue    money.Amount `bson:"totalValue" json:"totalValue"`
	Status        OrderStatus  `bson:"status" json:"status"`
	AddressData   AddressData  `bson:"addressData" json:"addressData"`
	Reason        string       `bson:"reason,omitempty" json:"reason,omitempty"`
	TransactionID string       `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	CreatedAt     time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Product is a catalog entry, read-only from the pipeline's perspective.
type Product struct {
	ID              string       `bson:"_id" json:"id"`
	Name            string       `bson:"name" json:"name"`
	Price           money.Amount `bson:"price" json:"price"`
	Description     string       `bson:"description,omitempty" json:"description,omitempty"`
	IsActive        bool         `bson:"isActive" json:"isActive"`
	HasStockControl bool         `bson:"hasStockControl" json:"hasStockControl"`
}

// StockEntry is one row of the append-only signed stock ledger. Current stock
// of a product is sum(INCREASE.quantity) - sum(DECREASE.quantity); entries are
// never updated or deleted.
type StockEntry struct {
	ID        string         `bson:"_id" json:"id"`
	ProductID string         `bson:"productId" json:"productId"`
	Type      StockOperation `bson:"type" json:"type"`
	Quantity  int            `bson:"quantity" json:"quantity"`
	Reason    string         `bson:"reason" json:"reason"`
	OrderID   string         `bson:"orderId,omitempty" json:"orderId,omitempty"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}

// MaskedCard is the only card shape that ever reaches the store.
type MaskedCard struct {
	CardNumber     string `bson:"cardNumber" json:"cardNumber"`
	CardHolderName string `bson:"cardHolderName" json:"cardHolderName"`
	ExpiryMonth    string `bson:"expiryMonth" json:"expiryMonth"`
	ExpiryYear     string `bson:"expiryYear" json:"expiryYear"`
	CVV            string `bson:"cvv" json:"cvv"`
}

// Transaction is the authoritative payment record for one order attempt.
type Transaction struct {
	ID             string        `bson:"_id" json:"id"`
	OrderID        string        `bson:"orderId" json:"orderId"`
	Amount         money.Amount  `bson:"amount" json:"amount"`
	PaymentStatus  PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	AuthCode       string        `bson:"authCode,omitempty" json:"authCode,omitempty"`
	ProcessingTime int64         `bson:"processingTimeMs" json:"processingTimeMs"`
	FailureReason  string        `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CardData       MaskedCard    `bson:"cardData" json:"cardData"`
	AddressData    AddressData   `bson:"addressData" json:"addressData"`
	CustomerData   CustomerData  `bson:"customerData" json:"customerData"`
	CreatedAt      time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time     `bson:"updatedAt" json:"updatedAt"`
}
