// Package shopclient is a typed HTTP client for the shop API.
package shopclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithToken returns a copy of the client that sends token as a bearer
// credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// WithHTTPClient returns a copy of the client using hc for requests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.httpClient = hc
	return &cp
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
	Fields  []FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return fmt.Sprintf("shop api: status %d: %s", e.Status, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("shop api: status %d: %s", e.Status, e.Message)
}

type Product struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	Price       float64 `json:"price"`
	SellerID    *uint   `json:"sellerId,omitempty"`
}

type User struct {
	ID      uint    `json:"id"`
	Email   string  `json:"email"`
	Role    string  `json:"role"`
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

type OrderItem struct {
	ID        uint    `json:"id"`
	OrderID   uint    `json:"orderId"`
	ProductID uint    `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID              uint        `json:"id"`
	UserID          uint        `json:"userId"`
	Status          string      `json:"status"`
	ShippingName    *string     `json:"shippingName"`
	ShippingAddress *string     `json:"shippingAddress"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	Items           []OrderItem `json:"items,omitempty"`
}

type OrderMeta struct {
	ShippingName    *string `json:"shippingName,omitempty"`
	ShippingAddress *string `json:"shippingAddress,omitempty"`
}

type OrderLine struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

type CreateOrderRequest struct {
	Order OrderMeta   `json:"order"`
	Items []OrderLine `json:"items"`
}

type UpdateOrderRequest struct {
	Status          *string `json:"status,omitempty"`
	ShippingName    *string `json:"shippingName,omitempty"`
	ShippingAddress *string `json:"shippingAddress,omitempty"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	User      User   `json:"user"`
}

type SearchPage struct {
	Data []Product `json:"data"`
	Meta struct {
		Page       int   `json:"page"`
		Size       int   `json:"size"`
		Total      int64 `json:"total"`
		TotalPages int64 `json:"totalPages"`
		HasPrev    bool  `json:"hasPrev"`
		HasNext    bool  `json:"hasNext"`
	} `json:"meta"`
}

func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	var out User
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/products/"+strconv.FormatUint(uint64(id), 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchProducts(ctx context.Context, query string, page, size int) (*SearchPage, error) {
	q := url.Values{}
	q.Set("q", query)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}

	var out SearchPage
	if err := c.do(ctx, http.MethodGet, "/products/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, id uint) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+strconv.FormatUint(uint64(id), 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id uint, req UpdateOrderRequest) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatUint(uint64(id), 10), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string       `json:"message"`
		Error   string       `json:"error"`
		Errors  []FieldError `json:"errors"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}

	apiErr.Fields = body.Errors
	switch {
	case body.Message != "":
		apiErr.Message = body.Message
	case body.Error != "":
		apiErr.Message = body.Error
	case len(body.Errors) > 0:
		apiErr.Message = "validation failed"
	default:
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
