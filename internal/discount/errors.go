package discount

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPrice is matched by every PriceError.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidDiscount is matched by every DiscountError.
	ErrInvalidDiscount = errors.New("invalid discount")
)

// Reason tags the specific cause of a rejected price or discount token.
type Reason string

const (
	ReasonPriceMalformed Reason = "price is not a decimal number"
	ReasonPriceNegative  Reason = "initial price cannot be negative"

	ReasonMalformedPercentage Reason = "percentage format invalid"
	ReasonMalformedFixed      Reason = "fixed amount format invalid"
	ReasonNegative            Reason = "discounts cannot be negative"
	ReasonUnrecognized        Reason = "unrecognized discount type"
)

// PriceError is returned when an accumulator cannot be built from the supplied price.
type PriceError struct {
	Value  string
	Reason Reason
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("invalid price %q: %s", e.Value, e.Reason)
}

// Is reports ErrInvalidPrice equivalence.
func (e *PriceError) Is(target error) bool { return target == ErrInvalidPrice }

// DiscountError is returned when a discount token is rejected. Err carries the
// parser failure for malformed literals.
type DiscountError struct {
	Token  string
	Reason Reason
	Err    error
}

func (e *DiscountError) Error() string {
	return fmt.Sprintf("invalid discount %q: %s", e.Token, e.Reason)
}

// Is reports ErrInvalidDiscount equivalence.
func (e *DiscountError) Is(target error) bool { return target == ErrInvalidDiscount }

func (e *DiscountError) Unwrap() error { return e.Err }

// ReasonOf extracts the reason tag from a PriceError or DiscountError anywhere in
// the chain. It returns "" for other errors.
func ReasonOf(err error) Reason {
	var pe *PriceError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	var de *DiscountError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
