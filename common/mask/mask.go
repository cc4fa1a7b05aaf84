// Package mask reduces sensitive payment fields to their storable form.
// Nothing outside this package should ever write raw card data to a log or
// to the document store.
package mask

import "strings"

const cvvSentinel = "***"

// CardNumber keeps only the last four digits: "4111111111111111" becomes
// "****-****-****-1111". Inputs shorter than four characters are fully
// masked.
func CardNumber(pan string) string {
	pan = strings.ReplaceAll(pan, " ", "")
	if len(pan) < 4 {
		return "****-****-****-****"
	}
	return "****-****-****-" + pan[len(pan)-4:]
}

// CVV always returns the fixed sentinel; the real value must not survive in
// any persisted or logged shape.
func CVV(string) string {
	return cvvSentinel
}

// CPF keeps only the two check digits: "12345678901" becomes
// "***.***.***-01". Malformed inputs are fully masked.
func CPF(cpf string) string {
	if len(cpf) != 11 {
		return "***.***.***-**"
	}
	return "***.***.***-" + cpf[9:]
}
