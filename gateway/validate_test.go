package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaslcw/order-pipeline/common/api"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func validRequest() OrderRequest {
	return OrderRequest{
		CustomerData: api.CustomerData{
			CPF:   "123.456.789-01",
			Email: "Ana.Silva@Example.COM",
			Name:  "Ana Silva",
		},
		Items: []api.RequestedItem{
			{ID: "prod-1", Quantity: 2},
		},
		PaymentData: api.PaymentData{
			CardNumber:     "4111 1111 1111 1111",
			CardHolderName: "ANA SILVA",
			ExpiryMonth:    "3",
			ExpiryYear:     "2028",
			CVV:            "123",
		},
		AddressData: api.AddressData{
			Street:       "Rua das Flores",
			Number:       "100",
			Neighborhood: "Centro",
			City:         "Sao Paulo",
			State:        "sp",
			ZipCode:      "01234567",
			Country:      "br",
		},
	}
}

func TestValidateAndSanitizeNormalizes(t *testing.T) {
	req := validRequest()
	require.NoError(t, validateAndSanitize(&req, testNow))

	assert.Equal(t, "ana.silva@example.com", req.CustomerData.Email)
	assert.Equal(t, "4111111111111111", req.PaymentData.CardNumber)
	assert.Equal(t, "03", req.PaymentData.ExpiryMonth)
	assert.Equal(t, "SP", req.AddressData.State)
	assert.Equal(t, "BR", req.AddressData.Country)
	assert.Equal(t, "01234-567", req.AddressData.ZipCode)
}

func TestValidateAndSanitizeKeepsHyphenatedZip(t *testing.T) {
	req := validRequest()
	req.AddressData.ZipCode = "01234-567"
	require.NoError(t, validateAndSanitize(&req, testNow))
	assert.Equal(t, "01234-567", req.AddressData.ZipCode)
}

func TestValidateAndSanitizeExpiryYearBounds(t *testing.T) {
	req := validRequest()
	req.PaymentData.ExpiryYear = "2026"
	assert.NoError(t, validateAndSanitize(&req, testNow))

	req = validRequest()
	req.PaymentData.ExpiryYear = "2036"
	assert.NoError(t, validateAndSanitize(&req, testNow))

	req = validRequest()
	req.PaymentData.ExpiryYear = "2025"
	assert.Error(t, validateAndSanitize(&req, testNow))

	req = validRequest()
	req.PaymentData.ExpiryYear = "2037"
	assert.Error(t, validateAndSanitize(&req, testNow))
}

func TestValidateAndSanitizeRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OrderRequest)
		wantMsg string
	}{
		{
			"missing cpf",
			func(r *OrderRequest) { r.CustomerData.CPF = " " },
			"customerData.cpf is required",
		},
		{
			"bad email",
			func(r *OrderRequest) { r.CustomerData.Email = "not-an-email" },
			"customerData.email must be a valid email address",
		},
		{
			"no items",
			func(r *OrderRequest) { r.Items = nil },
			"items must contain at least one item",
		},
		{
			"zero quantity",
			func(r *OrderRequest) { r.Items[0].Quantity = 0 },
			"items[0].quantity must be a positive integer",
		},
		{
			"short card number",
			func(r *OrderRequest) { r.PaymentData.CardNumber = "411111111111111" },
			"paymentData.cardNumber must be 16 digits",
		},
		{
			"non-numeric card number",
			func(r *OrderRequest) { r.PaymentData.CardNumber = "4111x11111111111" },
			"paymentData.cardNumber must be 16 digits",
		},
		{
			"month out of range",
			func(r *OrderRequest) { r.PaymentData.ExpiryMonth = "13" },
			"paymentData.expiryMonth must be between 1 and 12",
		},
		{
			"short cvv",
			func(r *OrderRequest) { r.PaymentData.CVV = "12" },
			"paymentData.cvv must be 3 or 4 digits",
		},
		{
			"missing street",
			func(r *OrderRequest) { r.AddressData.Street = "" },
			"addressData.street is required",
		},
		{
			"malformed zip",
			func(r *OrderRequest) { r.AddressData.ZipCode = "0123-4567" },
			"addressData.zipCode must match NNNNN-NNN",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := validateAndSanitize(&req, testNow)
			require.Error(t, err)
			assert.True(t, api.IsValidation(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}
