package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/discount-quote/internal/common"
	"github.com/noah-isme/discount-quote/internal/discount"
	"github.com/noah-isme/discount-quote/internal/obs"
)

// DefaultMaxDiscounts bounds the discount list when the service is not configured.
const DefaultMaxDiscounts = 20

// Request is a price plus the discount tokens to apply, in order.
type Request struct {
	Price     string
	Discounts []string
}

// AppliedDiscount describes what one token removed, rounded to cents.
type AppliedDiscount struct {
	Token      string        `json:"token"`
	Kind       discount.Kind `json:"kind"`
	Amount     string        `json:"amount"`
	PriceAfter string        `json:"priceAfter"`
}

// Quote is the priced outcome of a Request. Amounts are decimal strings with two places.
type Quote struct {
	ID           string            `json:"id"`
	InitialPrice string            `json:"initialPrice"`
	FinalPrice   string            `json:"finalPrice"`
	TotalSaved   string            `json:"totalSaved"`
	Applied      []AppliedDiscount `json:"applied"`
}

// Service prices requests with the discount accumulator.
type Service struct {
	Cache        *Cache
	Metrics      *obs.QuoteMetrics
	Logger       zerolog.Logger
	MaxDiscounts int
	NewID        func() string
}

// Quote computes the final price for req. Failures are returned as *common.AppError.
func (s *Service) Quote(ctx context.Context, req Request) (Quote, error) {
	ctx, span := otel.Tracer("quote").Start(ctx, "quote.calculate")
	defer span.End()
	span.SetAttributes(attribute.Int("quote.discounts", len(req.Discounts)))

	if limit := s.maxDiscounts(); len(req.Discounts) > limit {
		s.Metrics.ObserveQuote("too_many_discounts")
		return Quote{}, common.NewAppError("TOO_MANY_DISCOUNTS",
			fmt.Sprintf("at most %d discounts are allowed", limit), http.StatusBadRequest, nil)
	}

	key := Key(req)
	if cached, ok := s.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("quote.cached", true))
		cached.ID = s.newID()
		s.observeApplied(cached)
		return cached, nil
	}

	q, err := s.calculate(req)
	if err != nil {
		appErr := toAppError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, appErr.Code)
		s.Metrics.ObserveQuote(metricResult(appErr.Code))
		s.Logger.Debug().Err(err).Str("price", req.Price).Strs("discounts", req.Discounts).Msg("quote rejected")
		return Quote{}, appErr
	}
	s.observeApplied(q)

	if err := s.Cache.Set(ctx, key, q); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("quote cache store")
	}
	q.ID = s.newID()
	return q, nil
}

// calculate steps the accumulator token by token so the breakdown can be
// reported. Errors carry the failing token's position like ApplyDiscounts.
func (s *Service) calculate(req Request) (Quote, error) {
	acc, err := discount.NewFromString(req.Price)
	if err != nil {
		return Quote{}, err
	}
	applied := make([]AppliedDiscount, 0, len(req.Discounts))
	for i, raw := range req.Discounts {
		tok, err := discount.ParseToken(raw)
		if err != nil {
			return Quote{}, fmt.Errorf("discount %d: %w", i, err)
		}
		amount, err := acc.Apply(tok)
		if err != nil {
			return Quote{}, fmt.Errorf("discount %d: %w", i, err)
		}
		applied = append(applied, AppliedDiscount{
			Token:      tok.String(),
			Kind:       tok.Kind(),
			Amount:     discount.RoundCurrency(amount).StringFixed(discount.CurrencyPlaces),
			PriceAfter: acc.FinalPrice().StringFixed(discount.CurrencyPlaces),
		})
	}
	return Quote{
		InitialPrice: discount.RoundCurrency(acc.InitialPrice()).StringFixed(discount.CurrencyPlaces),
		FinalPrice:   acc.FinalPrice().StringFixed(discount.CurrencyPlaces),
		TotalSaved:   acc.TotalSaved().StringFixed(discount.CurrencyPlaces),
		Applied:      applied,
	}, nil
}

func (s *Service) observeApplied(q Quote) {
	s.Metrics.ObserveQuote("ok")
	for _, a := range q.Applied {
		s.Metrics.ObserveDiscount(string(a.Kind))
	}
}

func (s *Service) lookup(ctx context.Context, key string) (Quote, bool) {
	if s.Cache == nil || !s.Cache.enabled() {
		return Quote{}, false
	}
	q, ok, err := s.Cache.Get(ctx, key)
	switch {
	case err != nil:
		s.Metrics.ObserveCache("error")
		s.Logger.Warn().Err(err).Str("key", key).Msg("quote cache lookup")
		return Quote{}, false
	case ok:
		s.Metrics.ObserveCache("hit")
		return q, true
	default:
		s.Metrics.ObserveCache("miss")
		return Quote{}, false
	}
}

func (s *Service) maxDiscounts() int {
	if s.MaxDiscounts <= 0 {
		return DefaultMaxDiscounts
	}
	return s.MaxDiscounts
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func toAppError(err error) *common.AppError {
	details := map[string]string{"reason": string(discount.ReasonOf(err))}
	switch {
	case errors.Is(err, discount.ErrInvalidPrice):
		return common.NewAppError("INVALID_PRICE", err.Error(), http.StatusUnprocessableEntity, err).WithDetails(details)
	case errors.Is(err, discount.ErrInvalidDiscount):
		var de *discount.DiscountError
		if errors.As(err, &de) {
			details["token"] = de.Token
		}
		return common.NewAppError("INVALID_DISCOUNT", err.Error(), http.StatusUnprocessableEntity, err).WithDetails(details)
	default:
		return common.NewAppError("INTERNAL", "failed to calculate quote", http.StatusInternalServerError, err)
	}
}

func metricResult(code string) string {
	switch code {
	case "INVALID_PRICE":
		return "invalid_price"
	case "INVALID_DISCOUNT":
		return "invalid_discount"
	default:
		return "error"
	}
}
