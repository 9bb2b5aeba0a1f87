package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"frs/src/config"
)

type CreateOrderInput struct {
	Amount        int64
	Currency      string
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Note          string
}

type GatewayOrder struct {
	OrderID   string `json:"order_id"`
	SessionID string `json:"payment_session_id"`
}

type OrderStatus struct {
	OrderID string  `json:"order_id"`
	Status  string  `json:"order_status"`
	Amount  float64 `json:"order_amount"`
}

// PaymentGateway is the slice of the gateway API this service consumes.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, in *CreateOrderInput) (*GatewayOrder, error)
	OrderStatus(ctx context.Context, orderID string) (*OrderStatus, error)
}

type CashfreeClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
}

var gateway PaymentGateway

func GetPaymentGateway() PaymentGateway {
	if gateway != nil {
		return gateway
	}
	gateway = NewCashfreeClient()
	return gateway
}

// SetPaymentGateway Replace gateway instance with custom client implementation
func SetPaymentGateway(g PaymentGateway) PaymentGateway {
	gateway = g
	return gateway
}

func NewCashfreeClient() *CashfreeClient {
	id, secret := config.CashfreeCredentials()
	return &CashfreeClient{
		baseURL:      config.CashfreeBaseURL(),
		clientID:     id,
		clientSecret: secret,
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *CashfreeClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-api-version", config.CASHFREE_API_VERSION)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *CashfreeClient) CreateOrder(ctx context.Context, in *CreateOrderInput) (*GatewayOrder, error) {
	payload := map[string]any{
		"order_amount":   in.Amount,
		"order_currency": in.Currency,
		"customer_details": map[string]any{
			"customer_id":    in.CustomerID,
			"customer_name":  in.CustomerName,
			"customer_email": in.CustomerEmail,
			"customer_phone": in.CustomerPhone,
		},
	}
	if in.Note != "" {
		payload["order_note"] = in.Note
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/orders", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		log.Printf("[Cashfree] Create order failed: status=%d body=%s\n", res.StatusCode, string(body))
		return nil, fmt.Errorf("create order failed with status %d", res.StatusCode)
	}
	var order GatewayOrder
	if err := json.NewDecoder(res.Body).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *CashfreeClient) OrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/orders/%s", orderID), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(res.Body)
		log.Printf("[Cashfree] Order status fetch failed: order=%s status=%d body=%s\n", orderID, res.StatusCode, string(body))
		return nil, fmt.Errorf("order status fetch failed with status %d", res.StatusCode)
	}
	var status OrderStatus
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
