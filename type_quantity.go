package rebalance

import "github.com/shopspring/decimal"

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Quantity is an exact number of units of a security.
type Quantity struct {
	value decimal.Decimal
}

func Q[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

func (t Quantity) Equal(p Quantity) bool           { return t.value.Equal(p.value) }
func (t Quantity) LessThan(quantity Quantity) bool { return t.value.LessThan(quantity.value) }
func (t Quantity) GreaterThan(p Quantity) bool     { return t.value.GreaterThan(p.value) }
func (t Quantity) Mul(p Quantity) Quantity         { return Quantity{value: t.value.Mul(p.value)} }
func (t Quantity) Add(p Quantity) Quantity         { return Quantity{value: t.value.Add(p.value)} }
func (t Quantity) Sub(p Quantity) Quantity         { return Quantity{value: t.value.Sub(p.value)} }
func (t Quantity) Neg() Quantity                   { return Quantity{value: t.value.Neg()} }
func (t Quantity) Abs() Quantity                   { return Quantity{value: t.value.Abs()} }
func (t Quantity) IsNegative() bool                { return t.value.IsNegative() }
func (t Quantity) IsPositive() bool                { return t.value.IsPositive() }
func (t Quantity) IsZero() bool                    { return t.value.IsZero() }
func (t Quantity) Decimal() decimal.Decimal        { return t.value }
func (t Quantity) String() string                  { return t.value.String() }

// IsInteger reports whether the quantity is a whole number of units.
func (t Quantity) IsInteger() bool { return t.value.IsInteger() }

// Floor rounds toward zero to the nearest whole number of units.
// Quantities are never negative in a trade, so it is also the mathematical floor.
func (t Quantity) Floor() Quantity { return Quantity{value: t.value.Truncate(0)} }

// Truncate drops digits after the given number of decimal places.
func (t Quantity) Truncate(places int32) Quantity { return Quantity{value: t.value.Truncate(places)} }

// Scale multiplies the quantity by a plain ratio.
func (t Quantity) Scale(ratio decimal.Decimal) Quantity { return Quantity{value: t.value.Mul(ratio)} }

// Min returns the smallest of t and p.
func (t Quantity) Min(p Quantity) Quantity {
	if p.value.LessThan(t.value) {
		return p
	}
	return t
}

// MarshalJSON writes the quantity as a JSON number.
func (t Quantity) MarshalJSON() ([]byte, error) {
	return []byte(t.value.String()), nil
}

func (t *Quantity) UnmarshalJSON(decimalBytes []byte) error {
	return t.value.UnmarshalJSON(decimalBytes)
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (t *Quantity) UnmarshalCSV(field string) (err error) {
	t.value, err = decimal.NewFromString(field)
	return err
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (t Quantity) MarshalCSV() (string, error) {
	return t.value.String(), nil
}
