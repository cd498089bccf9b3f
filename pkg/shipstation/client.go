// Package shipstation provides a client for the ShipStation rating API.
// ShipStation quotes one carrier per call against flattened from/to
// postal codes and a metric weight, and never estimates delivery time.
package shipstation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the ShipStation operations the quoting engine needs.
type Client interface {
	// GetRates returns every service quote for the carrier named in req.
	GetRates(ctx context.Context, req RateRequest) ([]Rate, error)
}

// Weight is a parcel weight with explicit units.
type Weight struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// Dimensions are parcel dimensions with explicit units.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Units  string  `json:"units"`
}

// RateRequest is the payload for GetRates. Exactly one carrier is
// quoted per request.
type RateRequest struct {
	CarrierCode    string      `json:"carrierCode"`
	ServiceCode    string      `json:"serviceCode,omitempty"`
	PackageCode    string      `json:"packageCode,omitempty"`
	FromPostalCode string      `json:"fromPostalCode"`
	ToState        string      `json:"toState,omitempty"`
	ToCountry      string      `json:"toCountry"`
	ToPostalCode   string      `json:"toPostalCode"`
	ToCity         string      `json:"toCity,omitempty"`
	Weight         Weight      `json:"weight"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
	Confirmation   string      `json:"confirmation,omitempty"`
	Residential    bool        `json:"residential"`
}

// Rate is one service quote. The total cost of a shipment is
// ShipmentCost plus OtherCost; there is no delivery estimate.
type Rate struct {
	CarrierCode  string  `json:"carrierCode"`
	ServiceName  string  `json:"serviceName"`
	ServiceCode  string  `json:"serviceCode"`
	ShipmentCost float64 `json:"shipmentCost"`
	OtherCost    float64 `json:"otherCost"`
}

// Option configures the ShipStation client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimiter replaces the default client-side rate limiter.
// ShipStation enforces 40 requests per minute.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a new ShipStation client with key/secret basic auth.
func NewClient(apiKey, apiSecret string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   "https://ssapi.shipstation.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(40.0/60.0), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes an HTTP request with exponential backoff retries on
// transient failures, replaying the body from payload on each attempt.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "shipstation: rate limiter wait")
		}

		retryReq := req.Clone(ctx)
		if payload != nil {
			retryReq.Body = io.NopCloser(bytes.NewReader(payload))
		}

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "shipstation: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("shipstation: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) GetRates(ctx context.Context, rateReq RateRequest) ([]Rate, error) {
	payload, err := json.Marshal(rateReq)
	if err != nil {
		return nil, eris.Wrap(err, "shipstation: marshal rate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipments/getrates", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "shipstation: create request")
	}

	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, statusCode, err := c.retryDo(ctx, req, payload)
	if err != nil {
		return nil, eris.Wrap(err, "shipstation: request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("shipstation: unexpected status %d: %s", statusCode, string(body))
	}

	var rates []Rate
	if err := json.Unmarshal(body, &rates); err != nil {
		return nil, eris.Wrap(err, "shipstation: unmarshal rates")
	}

	return rates, nil
}
