package shipstation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testClient(url string) Client {
	return NewClient("key", "secret",
		WithBaseURL(url),
		WithRateLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
}

const ratesJSON = `[
	{"carrierCode": "fedex", "serviceName": "FedEx Ground", "serviceCode": "fedex_ground", "shipmentCost": 6.90, "otherCost": 0.35},
	{"carrierCode": "fedex", "serviceName": "FedEx 2Day", "serviceCode": "fedex_2day", "shipmentCost": 14.20, "otherCost": 0.35}
]`

func TestGetRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/shipments/getrates", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var req RateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fedex", req.CarrierCode)
		assert.Equal(t, "grams", req.Weight.Units)
		assert.InDelta(t, 453.59, req.Weight.Value, 0.01)

		_, _ = w.Write([]byte(ratesJSON))
	}))
	defer srv.Close()

	rates, err := testClient(srv.URL).GetRates(context.Background(), RateRequest{
		CarrierCode:    "fedex",
		FromPostalCode: "78701",
		ToPostalCode:   "80202",
		ToCountry:      "US",
		Weight:         Weight{Value: 453.59, Units: "grams"},
	})
	require.NoError(t, err)

	require.Len(t, rates, 2)
	assert.Equal(t, "FedEx Ground", rates[0].ServiceName)
	assert.Equal(t, 6.90, rates[0].ShipmentCost)
	assert.Equal(t, 0.35, rates[0].OtherCost)
}

func TestGetRates_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	rates, err := testClient(srv.URL).GetRates(context.Background(), RateRequest{CarrierCode: "fedex"})
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func TestGetRates_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req RateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fedex", req.CarrierCode)

		_, _ = w.Write([]byte(ratesJSON))
	}))
	defer srv.Close()

	rates, err := testClient(srv.URL).GetRates(context.Background(), RateRequest{CarrierCode: "fedex"})
	require.NoError(t, err)
	assert.Len(t, rates, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetRates_AuthFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetRates(context.Background(), RateRequest{CarrierCode: "fedex"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetRates_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetRates(context.Background(), RateRequest{CarrierCode: "fedex"})
	require.Error(t, err)
}
