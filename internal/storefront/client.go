// Package storefront is the JSON client for the storefront REST backend that
// owns users, carts and orders.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"storefront-checkout/internal/domain"
)

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront: status %d", e.Status)
	}
	return fmt.Sprintf("storefront: status %d: %s", e.Status, e.Message)
}

// AdminOrder is an order as listed by the backend admin API.
type AdminOrder struct {
	ID              string                 `json:"_id"`
	User            json.RawMessage        `json:"user,omitempty"`
	Items           []domain.OrderItem     `json:"items"`
	TotalAmount     float64                `json:"totalAmount"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	OrderStatus     string                 `json:"orderStatus"`
	CreatedAt       string                 `json:"createdAt,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

func New(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, logger: logger}
}

func (c *Client) UserID(ctx context.Context, email string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/getUserId/"+url.PathEscape(email), "", nil, &out); err != nil {
		return "", err
	}
	if out.UserID == "" {
		return "", domain.ErrNotFound
	}
	return out.UserID, nil
}

// Cart returns the user's cart; lines whose product no longer exists are dropped.
func (c *Client) Cart(ctx context.Context, userID string) (domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, http.MethodGet, "/cart/"+url.PathEscape(userID), "", nil, &cart); err != nil {
		return domain.Cart{}, err
	}
	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.Product != nil {
			items = append(items, item)
		}
	}
	cart.Items = items
	cart.UserID = userID
	return cart, nil
}

func (c *Client) ClearCart(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(userID), "", nil, nil)
}

// RemoveItem drops one product from the user's cart.
func (c *Client) RemoveItem(ctx context.Context, userID, productID string) error {
	return c.do(ctx, http.MethodDelete, itemPath(userID, productID), "", nil, nil)
}

// SetItemQuantity replaces the quantity of one cart line.
func (c *Client) SetItemQuantity(ctx context.Context, userID, productID string, quantity int) error {
	body := map[string]int{"quantity": quantity}
	return c.do(ctx, http.MethodPatch, itemPath(userID, productID), "", body, nil)
}

func itemPath(userID, productID string) string {
	return "/cart/" + url.PathEscape(userID) + "/item/" + url.PathEscape(productID)
}

// CreateOrder places an order on behalf of the bearer of token.
func (c *Client) CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (string, error) {
	var out struct {
		OrderID string `json:"orderId"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", token, req, &out); err != nil {
		return "", err
	}
	if out.OrderID == "" {
		msg := out.Message
		if msg == "" {
			msg = "order id missing from response"
		}
		return "", &Error{Status: http.StatusBadGateway, Message: msg}
	}
	return out.OrderID, nil
}

func (c *Client) AdminOrders(ctx context.Context) ([]AdminOrder, error) {
	var out []AdminOrder
	if err := c.do(ctx, http.MethodGet, "/admin/orders", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	body := map[string]string{"orderStatus": string(status)}
	return c.do(ctx, http.MethodPatch, "/admin/orders/"+url.PathEscape(orderID), "", body, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("storefront: %s %s error=%v", method, path, err)
		return fmt.Errorf("storefront %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &msg)
		c.logger.Printf("storefront: %s %s status=%d message=%q", method, path, resp.StatusCode, msg.Message)
		if resp.StatusCode == http.StatusNotFound && msg.Message == "" {
			return fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)
		}
		return &Error{Status: resp.StatusCode, Message: msg.Message}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
