package main

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lucaslcw/order-pipeline/common/api"
)

var (
	zipCodePattern = regexp.MustCompile(`^\d{5}-?\d{3}$`)
	digitsPattern  = regexp.MustCompile(`^\d+$`)
)

// validateAndSanitize checks every field shape and normalizes the request in
// place: trimmed strings, lowercased email, uppercased state and country,
// zero-padded expiry month, space-stripped card number, NNNNN-NNN zip code.
// Validation failures surface verbatim as the 400 response body.
func validateAndSanitize(req *OrderRequest, now time.Time) error {
	if err := sanitizeCustomer(&req.CustomerData); err != nil {
		return err
	}
	if err := validateItems(req.Items); err != nil {
		return err
	}
	if err := sanitizePayment(&req.PaymentData, now); err != nil {
		return err
	}
	return sanitizeAddress(&req.AddressData)
}

func sanitizeCustomer(c *api.CustomerData) error {
	c.CPF = strings.TrimSpace(c.CPF)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Name = strings.TrimSpace(c.Name)

	if c.CPF == "" {
		return api.Validationf("customerData.cpf is required")
	}
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		return api.Validationf("customerData.email must be a valid email address")
	}
	if c.Name == "" {
		return api.Validationf("customerData.name is required")
	}
	return nil
}

func validateItems(items []api.RequestedItem) error {
	if len(items) == 0 {
		return api.Validationf("items must contain at least one item")
	}
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return api.Validationf("items[%d].id is required", i)
		}
		if item.Quantity <= 0 {
			return api.Validationf("items[%d].quantity must be a positive integer", i)
		}
	}
	return nil
}

func sanitizePayment(p *api.PaymentData, now time.Time) error {
	p.CardNumber = strings.ReplaceAll(strings.TrimSpace(p.CardNumber), " ", "")
	p.CardHolderName = strings.TrimSpace(p.CardHolderName)
	p.ExpiryMonth = strings.TrimSpace(p.ExpiryMonth)
	p.ExpiryYear = strings.TrimSpace(p.ExpiryYear)
	p.CVV = strings.TrimSpace(p.CVV)

	if len(p.CardNumber) != 16 || !digitsPattern.MatchString(p.CardNumber) {
		return api.Validationf("paymentData.cardNumber must be 16 digits")
	}
	if p.CardHolderName == "" {
		return api.Validationf("paymentData.cardHolderName is required")
	}

	month, err := strconv.Atoi(p.ExpiryMonth)
	if err != nil || month < 1 || month > 12 {
		return api.Validationf("paymentData.expiryMonth must be between 1 and 12")
	}
	p.ExpiryMonth = pad2(month)

	year, err := strconv.Atoi(p.ExpiryYear)
	if err != nil || year < now.Year() || year > now.Year()+10 {
		return api.Validationf("paymentData.expiryYear must be between %d and %d", now.Year(), now.Year()+10)
	}

	if len(p.CVV) < 3 || len(p.CVV) > 4 || !digitsPattern.MatchString(p.CVV) {
		return api.Validationf("paymentData.cvv must be 3 or 4 digits")
	}
	return nil
}

func sanitizeAddress(a *api.AddressData) error {
	a.Street = strings.TrimSpace(a.Street)
	a.Number = strings.TrimSpace(a.Number)
	a.Complement = strings.TrimSpace(a.Complement)
	a.Neighborhood = strings.TrimSpace(a.Neighborhood)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.ToUpper(strings.TrimSpace(a.State))
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))

	required := []struct {
		value string
		field string
	}{
		{a.Street, "street"},
		{a.Number, "number"},
		{a.Neighborhood, "neighborhood"},
		{a.City, "city"},
		{a.State, "state"},
		{a.Country, "country"},
	}
	for _, r := range required {
		if r.value == "" {
			return api.Validationf("addressData.%s is required", r.field)
		}
	}

	if !zipCodePattern.MatchString(a.ZipCode) {
		return api.Validationf("addressData.zipCode must match NNNNN-NNN")
	}
	if !strings.Contains(a.ZipCode, "-") {
		a.ZipCode = a.ZipCode[:5] + "-" + a.ZipCode[5:]
	}
	return nil
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
