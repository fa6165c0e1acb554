package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

const (
	defaultMaxAttempts    = 4
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaximumBackoff = 5 * time.Second
)

// Client fetches order snapshots from the remote order-processing
// collaborator over HTTP. Lookups retry transient failures with bounded
// exponential backoff and surface a dependency error once attempts are
// exhausted, so callers can park the referral for retry instead of looping.
type Client struct {
	baseURL string
	http    *http.Client

	maxAttempts    int
	initialBackoff time.Duration
	maximumBackoff time.Duration
}

type orderPayload struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID *uuid.UUID      `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	Tax        decimal.Decimal `json:"tax"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	OrderDate  time.Time       `json:"date"`
}

// NewClient builds an HTTP-backed order provider.
func NewClient(cfg config.OrdersConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("orders base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid orders base url: %w", err)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	maximum := cfg.MaximumBackoff
	if maximum < initial {
		maximum = defaultMaximumBackoff
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		http:           &http.Client{Timeout: timeout},
		maxAttempts:    maxAttempts,
		initialBackoff: initial,
		maximumBackoff: maximum,
	}, nil
}

// GetOrder fetches one order snapshot by id.
func (c *Client) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderSnapshot, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var payload orderPayload
	if err := c.getJSON(ctx, fmt.Sprintf("%s/orders/%s", c.baseURL, orderID), &payload); err != nil {
		return nil, err
	}
	return snapshotFromPayload(payload)
}

// LastCompletedBefore returns the newest completed order preceding the given
// date, excluding the order being evaluated.
func (c *Client) LastCompletedBefore(ctx context.Context, customerID uuid.UUID, before time.Time, excludeOrderID uuid.UUID) (*models.OrderSnapshot, error) {
	var payloads []orderPayload
	target := fmt.Sprintf("%s/customers/%s/orders?status=completed&before=%s&exclude=%s",
		c.baseURL, customerID, url.QueryEscape(before.UTC().Format(time.RFC3339)), excludeOrderID)
	if err := c.getJSON(ctx, target, &payloads); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, nil
	}
	return snapshotFromPayload(payloads[0])
}

// CompletedOrderDates lists the dates of every completed order for a customer.
func (c *Client) CompletedOrderDates(ctx context.Context, customerID uuid.UUID) ([]time.Time, error) {
	var payloads []orderPayload
	target := fmt.Sprintf("%s/customers/%s/orders?status=completed", c.baseURL, customerID)
	if err := c.getJSON(ctx, target, &payloads); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	dates := make([]time.Time, 0, len(payloads))
	for _, payload := range payloads {
		dates = append(dates, payload.OrderDate)
	}
	return dates, nil
}

// CountCompleted counts a customer's completed orders.
func (c *Client) CountCompleted(ctx context.Context, customerID uuid.UUID) (int64, error) {
	dates, err := c.CompletedOrderDates(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return int64(len(dates)), nil
}

func (c *Client) getJSON(ctx context.Context, target string, dest any) error {
	attempts := 0
	backoff := c.initialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order lookup canceled")
		}

		err := c.doOnce(ctx, target, dest)
		if err == nil {
			return nil
		}
		typed := pkgerrors.As(err)
		if typed != nil && !pkgerrors.MetadataFor(typed.Code()).Retryable {
			return err
		}

		attempts++
		if attempts >= c.maxAttempts {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order service unavailable")
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "order lookup canceled")
		case <-timer.C:
		}
		timer.Stop()

		backoff = minDuration(backoff*2, c.maximumBackoff)
	}
}

func (c *Client) doOnce(ctx context.Context, target string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build order request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reach order service")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	case resp.StatusCode >= 500:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("order service returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order service returned %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order response")
	}
	return nil
}

func snapshotFromPayload(payload orderPayload) (*models.OrderSnapshot, error) {
	status, err := enums.ParseOrderStatus(payload.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	currency := payload.Currency
	if currency == "" {
		currency = "CHF"
	}
	return &models.OrderSnapshot{
		ID:         payload.ID,
		CustomerID: payload.CustomerID,
		Total:      payload.Total,
		Tax:        payload.Tax,
		Currency:   currency,
		Status:     status,
		OrderDate:  payload.OrderDate,
	}, nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
