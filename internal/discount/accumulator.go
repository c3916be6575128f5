package discount

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision of every rounded output.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Accumulator applies discounts to a price in order and tracks the running total
// saved. Internal state keeps full precision; only the accessors round.
//
// An Accumulator is owned by a single calculation. It is not safe for concurrent
// use without external locking.
type Accumulator struct {
	initial decimal.Decimal
	current decimal.Decimal
	saved   decimal.Decimal
}

// New returns an accumulator starting at price.
func New(price decimal.Decimal) (*Accumulator, error) {
	if price.IsNegative() {
		return nil, &PriceError{Value: price.String(), Reason: ReasonPriceNegative}
	}
	return &Accumulator{initial: price, current: price, saved: decimal.Zero}, nil
}

// NewFromString parses price as an exact decimal. Only plain literals are
// accepted; exponent forms are malformed.
func NewFromString(price string) (*Accumulator, error) {
	value, err := parseLiteral(strings.TrimSpace(price))
	if err != nil {
		return nil, &PriceError{Value: price, Reason: ReasonPriceMalformed}
	}
	return New(value)
}

// NewFromFloat converts price through its shortest decimal representation, so
// 199.99 becomes exactly 199.99.
func NewFromFloat(price float64) (*Accumulator, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, &PriceError{Value: fmt.Sprint(price), Reason: ReasonPriceMalformed}
	}
	return New(decimal.NewFromFloat(price))
}

// ApplyDiscount parses token and applies it. On error the state is unchanged.
func (a *Accumulator) ApplyDiscount(token string) error {
	t, err := ParseToken(token)
	if err != nil {
		return err
	}
	_, err = a.Apply(t)
	return err
}

// ApplyDiscounts applies tokens in order and stops at the first failure. Discounts
// applied before the failing token stay applied.
func (a *Accumulator) ApplyDiscounts(tokens []string) error {
	for i, token := range tokens {
		if err := a.ApplyDiscount(token); err != nil {
			return fmt.Errorf("discount %d: %w", i, err)
		}
	}
	return nil
}

// Apply applies an already parsed token and returns the unrounded amount it removed.
func (a *Accumulator) Apply(t Token) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch v := t.(type) {
	case Percentage:
		if v.Rate.IsNegative() {
			return decimal.Zero, &DiscountError{Token: v.String(), Reason: ReasonNegative}
		}
		amount = a.current.Mul(decimal.Min(v.Rate, hundred).Shift(-2))
	case FixedAmount:
		if v.Amount.IsNegative() {
			return decimal.Zero, &DiscountError{Token: v.String(), Reason: ReasonNegative}
		}
		amount = decimal.Min(v.Amount, a.current)
	default:
		return decimal.Zero, &DiscountError{Token: fmt.Sprint(t), Reason: ReasonUnrecognized}
	}
	a.register(amount)
	return amount, nil
}

func (a *Accumulator) register(amount decimal.Decimal) {
	a.current = a.current.Sub(amount)
	if a.current.IsNegative() {
		amount = amount.Add(a.current)
		a.current = decimal.Zero
	}
	a.saved = a.saved.Add(amount)
}

// InitialPrice returns the unrounded construction price.
func (a *Accumulator) InitialPrice() decimal.Decimal { return a.initial }

// FinalPrice returns the current price rounded half away from zero to cents.
func (a *Accumulator) FinalPrice() decimal.Decimal { return RoundCurrency(a.current) }

// TotalSaved returns the cumulative discount rounded half away from zero to cents.
func (a *Accumulator) TotalSaved() decimal.Decimal { return RoundCurrency(a.saved) }

// RoundCurrency rounds d to CurrencyPlaces, with midpoints going away from zero.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Result is the rounded outcome of a calculation.
type Result struct {
	FinalPrice decimal.Decimal
	TotalSaved decimal.Decimal
}

// Calculate applies discounts to price in order and returns the rounded outcome.
func Calculate(price decimal.Decimal, discounts ...string) (Result, error) {
	acc, err := New(price)
	if err != nil {
		return Result{}, err
	}
	return acc.result(discounts)
}

// CalculateString is Calculate with the price given as a decimal string.
func CalculateString(price string, discounts ...string) (Result, error) {
	acc, err := NewFromString(price)
	if err != nil {
		return Result{}, err
	}
	return acc.result(discounts)
}

func (a *Accumulator) result(discounts []string) (Result, error) {
	if err := a.ApplyDiscounts(discounts); err != nil {
		return Result{}, err
	}
	return Result{FinalPrice: a.FinalPrice(), TotalSaved: a.TotalSaved()}, nil
}
