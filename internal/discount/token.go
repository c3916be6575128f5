package discount

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind names the token variant, used for metrics labels and quote breakdowns.
type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

// Token is a parsed discount. The only implementations are Percentage and
// FixedAmount.
type Token interface {
	Kind() Kind
	Magnitude() decimal.Decimal
	String() string
	sealed()
}

// Percentage removes Rate percent of the current price. Rates above 100 behave as 100.
type Percentage struct {
	Rate decimal.Decimal
}

func (p Percentage) Kind() Kind                 { return KindPercentage }
func (p Percentage) Magnitude() decimal.Decimal { return p.Rate }
func (p Percentage) String() string             { return p.Rate.String() + "%" }
func (Percentage) sealed()                      {}

// FixedAmount removes Amount from the current price, never more than what remains.
type FixedAmount struct {
	Amount decimal.Decimal
}

func (f FixedAmount) Kind() Kind                 { return KindFixed }
func (f FixedAmount) Magnitude() decimal.Decimal { return f.Amount }
func (f FixedAmount) String() string             { return "$" + f.Amount.String() }
func (FixedAmount) sealed()                      {}

// decimalLiteral is an optional sign, digits and an optional fraction. Exponent
// forms are excluded so a short literal cannot expand into a huge coefficient.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// parseLiteral parses s as a plain decimal literal.
func parseLiteral(s string) (decimal.Decimal, error) {
	if !decimalLiteral.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%q is not a plain decimal literal", s)
	}
	return decimal.NewFromString(s)
}

// ParseToken classifies a raw token by a trailing "%" or a leading "$" and parses
// its literal. Negative magnitudes are rejected here so every Token is non-negative.
func ParseToken(raw string) (Token, error) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasSuffix(s, "%"):
		rate, err := parseLiteral(strings.TrimSpace(strings.TrimSuffix(s, "%")))
		if err != nil {
			return nil, &DiscountError{Token: raw, Reason: ReasonMalformedPercentage, Err: err}
		}
		if rate.IsNegative() {
			return nil, &DiscountError{Token: raw, Reason: ReasonNegative}
		}
		return Percentage{Rate: rate}, nil
	case strings.HasPrefix(s, "$"):
		amount, err := parseLiteral(strings.TrimSpace(strings.TrimPrefix(s, "$")))
		if err != nil {
			return nil, &DiscountError{Token: raw, Reason: ReasonMalformedFixed, Err: err}
		}
		if amount.IsNegative() {
			return nil, &DiscountError{Token: raw, Reason: ReasonNegative}
		}
		return FixedAmount{Amount: amount}, nil
	default:
		return nil, &DiscountError{Token: raw, Reason: ReasonUnrecognized}
	}
}
