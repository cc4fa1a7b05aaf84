package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardNumber(t *testing.T) {
	tests := []struct {
		name string
		pan  string
		want string
	}{
		{"full pan", "4111111111111111", "****-****-****-1111"},
		{"pan with spaces", "4111 1111 1111 1111", "****-****-****-1111"},
		{"declined test card", "4111111111110000", "****-****-****-0000"},
		{"too short", "12", "****-****-****-****"},
		{"empty", "", "****-****-****-****"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CardNumber(tt.pan))
		})
	}
}

func TestCVV(t *testing.T) {
	assert.Equal(t, "***", CVV("123"))
	assert.Equal(t, "***", CVV("9999"))
	assert.Equal(t, "***", CVV(""))
}

func TestCPF(t *testing.T) {
	assert.Equal(t, "***.***.***-01", CPF("12345678901"))
	assert.Equal(t, "***.***.***-**", CPF("123.456.789-01"))
	assert.Equal(t, "***.***.***-**", CPF(""))
}
