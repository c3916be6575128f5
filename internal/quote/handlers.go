package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/discount-quote/internal/common"
	"github.com/noah-isme/discount-quote/internal/security"
)

// Handler exposes the quote endpoint.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewHandler wires a handler with a fresh validator.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New(validator.WithRequiredStructEnabled())}
}

type quoteRequest struct {
	Price     priceField `json:"price" validate:"required"`
	Discounts []string   `json:"discounts" validate:"omitempty,dive,max=64"`
}

// priceField accepts the price as a JSON string or a JSON number. Numbers keep
// their literal text so no float conversion happens.
type priceField string

func (p *priceField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = priceField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("price must be a string or a number")
	}
	*p = priceField(n.String())
	return nil
}

// Create prices the posted discounts against the posted price.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var payload quoteRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		if security.IsTooLarge(err) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", nil)
			return
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid payload", validationDetails(err))
			return
		}
	}

	q, err := h.Svc.Quote(r.Context(), Request{Price: string(payload.Price), Discounts: payload.Discounts})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, q)
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return out
}
