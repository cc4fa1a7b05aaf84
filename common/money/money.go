package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Amount is an exact decimal monetary value. It marshals to a JSON string and
// is stored in the document store as a string, so no binary floats ever touch
// arithmetic or comparisons.
type Amount struct {
	decimal.Decimal
}

func Zero() Amount {
	return Amount{decimal.Zero}
}

func FromInt(n int64) Amount {
	return Amount{decimal.NewFromInt(n)}
}

func FromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{d}, nil
}

// MustFromString is for literals in tests and seed data.
func MustFromString(s string) Amount {
	a, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal)}
}

// MulInt multiplies by an item quantity.
func (a Amount) MulInt(n int64) Amount {
	return Amount{a.Decimal.Mul(decimal.NewFromInt(n))}
}

func (a Amount) GTE(b Amount) bool {
	return a.Decimal.GreaterThanOrEqual(b.Decimal)
}

func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(a.Decimal.String())
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	var s string
	if err := rv.Unmarshal(&s); err != nil {
		return fmt.Errorf("amount: expected string value: %w", err)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	a.Decimal = d
	return nil
}
