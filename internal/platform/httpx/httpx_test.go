package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("thing missing")

func TestClassifyAndRespond(t *testing.T) {
	err := Classify(errMissing, Rule{Domain: errMissing, HTTP: ErrNotFound})
	require.ErrorIs(t, err, errMissing)
	require.ErrorIs(t, err, ErrNotFound)

	res := httptest.NewRecorder()
	RespondError(res, err)
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	require.Contains(t, res.Body.String(), "thing missing")

	res = httptest.NewRecorder()
	RespondError(res, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, res.Code)
	require.NotContains(t, res.Body.String(), "boom")

	require.NoError(t, Classify(nil))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)
}

func TestValidatorComparesDecimals(t *testing.T) {
	type payload struct {
		Amount decimal.Decimal `validate:"gt=0"`
	}
	v := NewValidator()
	require.NoError(t, v.Struct(payload{Amount: decimal.RequireFromString("0.5")}))
	require.Error(t, v.Struct(payload{Amount: decimal.Zero}))
	require.Error(t, v.Struct(payload{Amount: decimal.NewFromInt(-3)}))
}
