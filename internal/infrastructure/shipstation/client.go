package shipstation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/oracare/fulfillment/internal/domain/shared"
	"github.com/oracare/fulfillment/internal/infrastructure/config"
)

// errTooManyRequests marks an attempt that died on a platform 429. It stays
// internal; exhausted retries surface as shared.ErrRateLimited.
var errTooManyRequests = errors.New("shipstation: too many requests")

// Client talks to the ShipStation REST API with Basic authentication,
// page/pages pagination and 429-aware retries.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	apiSecret    string
	storeID      int
	pageSize     int
	maxRetries   int
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewClient creates a new ShipStation API client
func NewClient(cfg config.ShipStationConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		storeID:      cfg.StoreID,
		pageSize:     cfg.PageSize,
		maxRetries:   cfg.MaxRetries,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger.Named("shipstation"),
	}
}

// ListOrdersModifiedBetween returns every order whose modifyDate falls in
// [from, to), walking all result pages.
func (c *Client) ListOrdersModifiedBetween(ctx context.Context, from, to time.Time) ([]Order, error) {
	var all []Order
	page := 1
	for {
		query := url.Values{}
		query.Set("modifyDateStart", from.UTC().Format("2006-01-02 15:04:05"))
		query.Set("modifyDateEnd", to.UTC().Format("2006-01-02 15:04:05"))
		query.Set("pageSize", strconv.Itoa(c.pageSize))
		query.Set("page", strconv.Itoa(page))
		query.Set("sortBy", "ModifyDate")
		query.Set("sortDir", "ASC")
		if c.storeID != 0 {
			query.Set("storeId", strconv.Itoa(c.storeID))
		}

		var resp ordersResponse
		if err := c.get(ctx, "/orders", query, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Orders...)

		if page >= resp.Pages || resp.Pages == 0 {
			return all, nil
		}
		page++
	}
}

// GetOrder returns one order by its platform ID. A platform 404 maps to
// shared.ErrRemoteOrderNotFound so callers can apply orphan handling.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	if err := c.get(ctx, fmt.Sprintf("/orders/%d", orderID), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrdersByNumber returns orders matching an exact order number. The API
// treats orderNumber as a prefix filter, so callers must match exactly.
func (c *Client) ListOrdersByNumber(ctx context.Context, orderNumber string) ([]Order, error) {
	query := url.Values{}
	query.Set("orderNumber", orderNumber)
	query.Set("pageSize", strconv.Itoa(c.pageSize))

	var resp ordersResponse
	if err := c.get(ctx, "/orders", query, &resp); err != nil {
		return nil, err
	}
	exact := make([]Order, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		if o.OrderNumber == orderNumber {
			exact = append(exact, o)
		}
	}
	return exact, nil
}

// ListShipmentsBetween returns every non-voided shipment created in
// [from, to), walking all result pages.
func (c *Client) ListShipmentsBetween(ctx context.Context, from, to time.Time) ([]Shipment, error) {
	var all []Shipment
	page := 1
	for {
		query := url.Values{}
		query.Set("createDateStart", from.UTC().Format("2006-01-02 15:04:05"))
		query.Set("createDateEnd", to.UTC().Format("2006-01-02 15:04:05"))
		query.Set("pageSize", strconv.Itoa(c.pageSize))
		query.Set("page", strconv.Itoa(page))

		var resp shipmentsResponse
		if err := c.get(ctx, "/shipments", query, &resp); err != nil {
			return nil, err
		}
		for _, s := range resp.Shipments {
			if !s.Voided {
				all = append(all, s)
			}
		}

		if page >= resp.Pages || resp.Pages == 0 {
			return all, nil
		}
		page++
	}
}

// CreateOrUpdateOrder pushes an order to the platform. ShipStation matches on
// orderKey, so resubmitting the same key updates the existing order in place.
func (c *Client) CreateOrUpdateOrder(ctx context.Context, upload *OrderUpload) (*Order, error) {
	if c.storeID != 0 && upload.AdvancedOptions == nil {
		upload.AdvancedOptions = &AdvancedOptions{StoreID: c.storeID}
	}

	var o Order
	if err := c.do(ctx, http.MethodPost, "/orders/createorder", nil, upload, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteOrder removes an order from the platform. A platform 404 maps to
// shared.ErrRemoteOrderNotFound.
func (c *Client) DeleteOrder(ctx context.Context, orderID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", orderID), nil, nil, nil)
}

// get performs an authenticated GET with retries and decodes the response
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// do performs one authenticated request with retries. A nil payload sends no
// body; a nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("shipstation: encode request: %w", err)
		}
	}

	limiter := &rateLimitBackOff{inner: newBackOff()}
	policy := backoff.WithContext(backoff.WithMaxRetries(limiter, uint64(c.maxRetries)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.SetBasicAuth(c.apiKey, c.apiSecret)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("Request failed", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp)
			c.logger.Warn("Rate limited",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("retry_after", wait),
			)
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			limiter.retryAfter = wait
			return errTooManyRequests

		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(shared.ErrRemoteOrderNotFound)

		case resp.StatusCode >= 500:
			c.logger.Warn("Server error", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("shipstation: server error %d", resp.StatusCode)

		case resp.StatusCode >= 400:
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return backoff.Permanent(fmt.Errorf("shipstation: client error %d: %s", resp.StatusCode, string(respBody)))
		}

		if out == nil {
			io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBodyBytes))
			return nil
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
		if err != nil {
			return err
		}
		if int64(len(respBody)) >= c.maxBodyBytes {
			return backoff.Permanent(fmt.Errorf("shipstation: response exceeds %d byte limit", c.maxBodyBytes))
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(fmt.Errorf("shipstation: decode response: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, errTooManyRequests) {
			return shared.ErrRateLimited
		}
		return err
	}
	return nil
}

// rateLimitBackOff wraps the exponential schedule and lets the operation
// substitute the platform's Retry-After hint for the next wait.
type rateLimitBackOff struct {
	inner      backoff.BackOff
	retryAfter time.Duration
}

// NextBackOff implements backoff.BackOff
func (b *rateLimitBackOff) NextBackOff() time.Duration {
	if b.retryAfter > 0 {
		wait := b.retryAfter
		b.retryAfter = 0
		return wait
	}
	return b.inner.NextBackOff()
}

// Reset implements backoff.BackOff
func (b *rateLimitBackOff) Reset() {
	b.retryAfter = 0
	b.inner.Reset()
}

// newBackOff builds the exponential retry schedule
func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// retryAfter reads the Retry-After header, defaulting to 15 seconds
func retryAfter(resp *http.Response) time.Duration {
	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 15 * time.Second
}
