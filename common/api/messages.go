package api

import "github.com/lucaslcw/order-pipeline/common/money"

// RequestedItem is an item as submitted by the client, before enrichment.
type RequestedItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// InitializeOrder is published by the gateway to the fanout exchange and
// consumed independently by the lead worker and the order worker.
type InitializeOrder struct {
	OrderID      string          `json:"orderId"`
	CustomerData CustomerData    `json:"customerData"`
	PaymentData  PaymentData     `json:"paymentData"`
	AddressData  AddressData     `json:"addressData"`
	Items        []RequestedItem `json:"items"`
}

// InitializeOrderSubject is carried as the message subject header.
const InitializeOrderSubject = "New Order Request"

// StockUpdate asks the stock worker to append one signed ledger entry.
type StockUpdate struct {
	ProductID string         `json:"productId"`
	Quantity  int            `json:"quantity"`
	Operation StockOperation `json:"operation"`
	OrderID   string         `json:"orderId,omitempty"`
	Reason    string         `json:"reason"`
}

// ProcessTransaction asks the payment worker to charge one order.
type ProcessTransaction struct {
	OrderID         string       `json:"orderId"`
	OrderTotalValue money.Amount `json:"orderTotalValue"`
	PaymentData     PaymentData  `json:"paymentData"`
	AddressData     AddressData  `json:"addressData"`
	CustomerData    CustomerData `json:"customerData"`
}

// UpdateOrder asks the update worker to advance the order state machine.
type UpdateOrder struct {
	OrderID       string      `json:"orderId"`
	Status        OrderStatus `json:"status"`
	Reason        string      `json:"reason,omitempty"`
	TransactionID string      `json:"transactionId,omitempty"`
}
