package discount_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/noah-isme/discount-quote/internal/discount"
)

type accumulatorContext struct {
	acc      *discount.Accumulator
	priceErr error
	applyErr error
}

func (c *accumulatorContext) reset() {
	c.acc = nil
	c.priceErr = nil
	c.applyErr = nil
}

func (c *accumulatorContext) anInitialPriceOf(price string) error {
	c.acc, c.priceErr = discount.NewFromString(price)
	return nil
}

func (c *accumulatorContext) iApplyTheDiscounts(list string) error {
	if c.acc == nil {
		return fmt.Errorf("no accumulator: %v", c.priceErr)
	}
	var tokens []string
	for _, tok := range strings.Split(list, ",") {
		if strings.TrimSpace(tok) != "" {
			tokens = append(tokens, tok)
		}
	}
	c.applyErr = c.acc.ApplyDiscounts(tokens)
	return nil
}

func (c *accumulatorContext) theFinalPriceIs(want string) error {
	if c.acc == nil {
		return errors.New("no accumulator")
	}
	if got := c.acc.FinalPrice().StringFixed(discount.CurrencyPlaces); got != want {
		return fmt.Errorf("final price: want %s, got %s", want, got)
	}
	return nil
}

func (c *accumulatorContext) theTotalSavedIs(want string) error {
	if c.applyErr != nil {
		return fmt.Errorf("unexpected error: %w", c.applyErr)
	}
	if got := c.acc.TotalSaved().StringFixed(discount.CurrencyPlaces); got != want {
		return fmt.Errorf("total saved: want %s, got %s", want, got)
	}
	return nil
}

func (c *accumulatorContext) theDiscountIsRejectedWith(reason string) error {
	if !errors.Is(c.applyErr, discount.ErrInvalidDiscount) {
		return fmt.Errorf("expected invalid discount, got %v", c.applyErr)
	}
	if got := discount.ReasonOf(c.applyErr); string(got) != reason {
		return fmt.Errorf("reason: want %q, got %q", reason, got)
	}
	return nil
}

func (c *accumulatorContext) thePriceIsRejectedWith(reason string) error {
	if !errors.Is(c.priceErr, discount.ErrInvalidPrice) {
		return fmt.Errorf("expected invalid price, got %v", c.priceErr)
	}
	if got := discount.ReasonOf(c.priceErr); string(got) != reason {
		return fmt.Errorf("reason: want %q, got %q", reason, got)
	}
	return nil
}

func initializeScenario(ctx *godog.ScenarioContext) {
	tc := &accumulatorContext{}

	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^an initial price of "([^"]*)"$`, tc.anInitialPriceOf)
	ctx.Step(`^I apply the discounts "([^"]*)"$`, tc.iApplyTheDiscounts)
	ctx.Step(`^the final price is "([^"]*)"$`, tc.theFinalPriceIs)
	ctx.Step(`^the total saved is "([^"]*)"$`, tc.theTotalSavedIs)
	ctx.Step(`^the discount is rejected with "([^"]*)"$`, tc.theDiscountIsRejectedWith)
	ctx.Step(`^the price is rejected with "([^"]*)"$`, tc.thePriceIsRejectedWith)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
