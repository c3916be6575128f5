package quote_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/discount-quote/internal/common"
	"github.com/noah-isme/discount-quote/internal/quote"
	"github.com/noah-isme/discount-quote/internal/security"
)

type quoteResponse struct {
	Data quote.Quote `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func post(t *testing.T, h *quote.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func TestCreateQuote(t *testing.T) {
	h := quote.NewHandler(&quote.Service{Logger: zerolog.Nop()})

	t.Run("string price", func(t *testing.T) {
		rec := post(t, h, `{"price":"199.99","discounts":["12.345%"]}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp quoteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Data.ID)
		require.Equal(t, "175.30", resp.Data.FinalPrice)
		require.Equal(t, "24.69", resp.Data.TotalSaved)
		require.Len(t, resp.Data.Applied, 1)
	})

	t.Run("numeric price keeps literal", func(t *testing.T) {
		rec := post(t, h, `{"price":0.1,"discounts":["$0.03"]}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp quoteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "0.07", resp.Data.FinalPrice)
		require.Equal(t, "0.03", resp.Data.TotalSaved)
	})

	t.Run("no discounts", func(t *testing.T) {
		rec := post(t, h, `{"price":"250"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp quoteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "250.00", resp.Data.FinalPrice)
		require.Equal(t, "0.00", resp.Data.TotalSaved)
		require.Empty(t, resp.Data.Applied)
	})
}

func TestCreateQuoteErrors(t *testing.T) {
	h := quote.NewHandler(&quote.Service{Logger: zerolog.Nop(), MaxDiscounts: 3})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "malformed json", body: `{"price":`, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "unknown field", body: `{"price":"1","coupon":"X"}`, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "price wrong type", body: `{"price":true}`, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "missing price", body: `{"discounts":["10%"]}`, status: http.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "oversized token", body: `{"price":"1","discounts":["` + strings.Repeat("9", 70) + `%"]}`, status: http.StatusBadRequest, code: "VALIDATION_FAILED"},
		{name: "too many discounts", body: `{"price":"1","discounts":["1%","1%","1%","1%"]}`, status: http.StatusBadRequest, code: "TOO_MANY_DISCOUNTS"},
		{name: "negative price", body: `{"price":-100}`, status: http.StatusUnprocessableEntity, code: "INVALID_PRICE"},
		{name: "negative discount", body: `{"price":"100","discounts":["-50%"]}`, status: http.StatusUnprocessableEntity, code: "INVALID_DISCOUNT"},
		{name: "exponent price number", body: `{"price":1e400}`, status: http.StatusUnprocessableEntity, code: "INVALID_PRICE"},
		{name: "exponent price string", body: `{"price":"1e-20000000"}`, status: http.StatusUnprocessableEntity, code: "INVALID_PRICE"},
		{name: "exponent fixed discount", body: `{"price":"100","discounts":["$1e-20000000"]}`, status: http.StatusUnprocessableEntity, code: "INVALID_DISCOUNT"},
		{name: "exponent percentage", body: `{"price":"100","discounts":["1e2%"]}`, status: http.StatusUnprocessableEntity, code: "INVALID_DISCOUNT"},
		{name: "unrecognized discount", body: `{"price":"100","discounts":["cupón"]}`, status: http.StatusUnprocessableEntity, code: "INVALID_DISCOUNT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, h, tc.body)
			require.Equal(t, tc.status, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestCreateQuoteReportsReason(t *testing.T) {
	h := quote.NewHandler(&quote.Service{Logger: zerolog.Nop()})
	rec := post(t, h, `{"price":"100","discounts":["10%","$-50"]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "discounts cannot be negative", resp.Error.Details["reason"])
	require.Equal(t, "$-50", resp.Error.Details["token"])
	require.Contains(t, resp.Error.Message, "discount 1")
}

func TestCreateWithoutService(t *testing.T) {
	rec := post(t, &quote.Handler{}, `{"price":"1"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "INTERNAL", resp.Error.Code)
}

func TestCreateQuoteBodyTooLarge(t *testing.T) {
	h := quote.NewHandler(&quote.Service{Logger: zerolog.Nop()})
	limited := security.BodyLimit{Max: 16}.Middleware(http.HandlerFunc(h.Create))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"price":"100","discounts":["10%"]}`))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
