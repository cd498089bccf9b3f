// Package easypost provides a minimal client for the EasyPost shipment
// and rating API: verified addresses, parcels, customs, and the rate
// list attached to a created shipment.
package easypost

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

// Client defines the EasyPost operations the quoting engine needs.
type Client interface {
	// CreateShipment registers a shipment and returns it with rates from
	// every enabled carrier account.
	CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error)
}

// Address mirrors the EasyPost address object.
type Address struct {
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Street1     string `json:"street1"`
	Street2     string `json:"street2,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
	Residential bool   `json:"residential,omitempty"`
}

// Parcel mirrors the EasyPost parcel object. Dimensions are inches,
// weight is ounces. PredefinedPackage, when set, wins over dimensions.
type Parcel struct {
	Length            float64 `json:"length,omitempty"`
	Width             float64 `json:"width,omitempty"`
	Height            float64 `json:"height,omitempty"`
	Weight            float64 `json:"weight"`
	PredefinedPackage string  `json:"predefined_package,omitempty"`
}

// CustomsItem is one line of a customs declaration.
type CustomsItem struct {
	Description    string  `json:"description"`
	Quantity       int     `json:"quantity"`
	Value          float64 `json:"value"`
	Weight         float64 `json:"weight"`
	HSTariffNumber string  `json:"hs_tariff_number,omitempty"`
	OriginCountry  string  `json:"origin_country"`
}

// CustomsInfo is the customs declaration attached to a shipment. Some
// carriers (DHL) refuse to rate without one.
type CustomsInfo struct {
	EELPFC          string        `json:"eel_pfc,omitempty"`
	ContentsType    string        `json:"contents_type,omitempty"`
	CustomsCertify  bool          `json:"customs_certify"`
	CustomsSigner   string        `json:"customs_signer,omitempty"`
	RestrictionType string        `json:"restriction_type,omitempty"`
	CustomsItems    []CustomsItem `json:"customs_items,omitempty"`
}

// ShipmentRequest is the payload for CreateShipment.
type ShipmentRequest struct {
	From        Address      `json:"from_address"`
	To          Address      `json:"to_address"`
	Parcel      Parcel       `json:"parcel"`
	CustomsInfo *CustomsInfo `json:"customs_info,omitempty"`
}

// Rate is one carrier+service price on a shipment. EasyPost returns
// monetary amounts as strings; they are parsed downstream so a bad
// value is an explicit error, not a silent zero.
type Rate struct {
	ID               string `json:"id"`
	Carrier          string `json:"carrier"`
	Service          string `json:"service"`
	Rate             string `json:"rate"`
	ListRate         string `json:"list_rate"`
	EstDeliveryDays  *int   `json:"est_delivery_days"`
	CarrierAccountID string `json:"carrier_account_id"`
}

// Message is a carrier diagnostic attached to a shipment.
type Message struct {
	Carrier string `json:"carrier"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Shipment is the created shipment with its rates, diagnostics, and the
// verified copies of both addresses.
type Shipment struct {
	ID       string    `json:"id"`
	From     Address   `json:"from_address"`
	To       Address   `json:"to_address"`
	Rates    []Rate    `json:"rates"`
	Messages []Message `json:"messages"`
}

// Option configures the EasyPost client.
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
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new EasyPost client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.easypost.com/v2",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
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
// transient failures (429, 500, 502, 503). The request body is replayed
// from payload on each attempt.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "easypost: rate limiter wait")
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
			return nil, resp.StatusCode, eris.Wrap(readErr, "easypost: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("easypost: status %d: %s", resp.StatusCode, string(body))
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

func (c *httpClient) CreateShipment(ctx context.Context, shipReq ShipmentRequest) (*Shipment, error) {
	payload, err := json.Marshal(map[string]ShipmentRequest{"shipment": shipReq})
	if err != nil {
		return nil, eris.Wrap(err, "easypost: marshal shipment")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipments", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "easypost: create request")
	}

	// EasyPost authenticates with the API key as the basic-auth user.
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, statusCode, err := c.retryDo(ctx, req, payload)
	if err != nil {
		return nil, eris.Wrap(err, "easypost: request failed")
	}

	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return nil, eris.Errorf("easypost: unexpected status %d: %s", statusCode, string(body))
	}

	var shipment Shipment
	if err := json.Unmarshal(body, &shipment); err != nil {
		return nil, eris.Wrap(err, "easypost: unmarshal shipment")
	}

	return &shipment, nil
}
