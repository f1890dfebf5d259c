// Package salesapi is the REST client for the remote sales and catalog API.
package salesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const refreshPath = "/auth/refresh"

type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker circuitbreaker.Config
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.Breaker[*rawResponse]
	refresh singleflight.Group
	log     *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = circuitbreaker.DefaultConfig("sales-api")
	}
	cfg.Breaker.IsFailure = func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[*rawResponse](cfg.Breaker, log),
		log:     log,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

type rawResponse struct {
	status int
	body   []byte
}

// SearchProducts returns active products matching query, at most limit of them.
func (c *Client) SearchProducts(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	q := url.Values{}
	q.Set("search", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("isActive", "true")

	var data struct {
		Products []domain.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/products", q, nil, &data); err != nil {
		return nil, err
	}
	if data.Products == nil {
		return []domain.Product{}, nil
	}
	return data.Products, nil
}

// CreateSale posts a finalized sale. The returned sale is whatever the API
// echoed back and may be empty if it echoed nothing.
func (c *Client) CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	var sale domain.Sale
	if err := c.do(ctx, http.MethodPost, "/sales", nil, req, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (c *Client) ListSales(ctx context.Context, f domain.SalesFilter) ([]domain.Sale, error) {
	q := url.Values{}
	setIf(q, "search", f.Search)
	setIf(q, "dateFrom", f.DateFrom)
	setIf(q, "dateTo", f.DateTo)
	setIf(q, "store", f.StoreID)

	var data struct {
		Sales []domain.Sale `json:"sales"`
	}
	if err := c.do(ctx, http.MethodGet, "/sales", q, nil, &data); err != nil {
		return nil, err
	}
	return data.Sales, nil
}

func (c *Client) DailyCut(ctx context.Context, storeID string) (*domain.DailyCut, error) {
	q := url.Values{}
	setIf(q, "storeId", storeID)

	var cut domain.DailyCut
	if err := c.do(ctx, http.MethodGet, "/sales/daily-cut", q, nil, &cut); err != nil {
		return nil, err
	}
	return &cut, nil
}

func (c *Client) Stores(ctx context.Context) ([]domain.Ref, error) {
	var stores []domain.Ref
	if err := c.do(ctx, http.MethodGet, "/stores", nil, nil, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// Refresh trades a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (access, refresh string, err error) {
	var data struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	resp, err := c.send(ctx, http.MethodPost, refreshPath, nil, body, "")
	if err != nil {
		return "", "", err
	}
	if err := decode(resp, &data); err != nil {
		return "", "", err
	}
	if data.AccessToken == "" {
		return "", "", &APIError{StatusCode: http.StatusUnauthorized, Message: "refresh returned no access token"}
	}
	return data.AccessToken, data.RefreshToken, nil
}

// do performs one call and, on a 401, at most one token refresh followed by
// one retry.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	tokens := TokensFromContext(ctx)
	var used string
	if tokens != nil {
		used = tokens.Access()
	}

	resp, err := c.send(ctx, method, path, query, body, used)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && tokens != nil {
		if err := c.renew(ctx, tokens, used); err != nil {
			c.log.WarnContext(ctx, "token refresh failed", "path", path, "error", err)
			return decode(resp, out)
		}
		resp, err = c.send(ctx, method, path, query, body, tokens.Access())
		if err != nil {
			return err
		}
	}

	return decode(resp, out)
}

// renew refreshes tokens unless a concurrent call already replaced the
// access token that was rejected.
func (c *Client) renew(ctx context.Context, tokens *Tokens, rejected string) error {
	if tokens.Access() != rejected {
		return nil
	}
	rt := tokens.Refresh()
	if rt == "" {
		return ErrUnauthorized
	}

	_, err, _ := c.refresh.Do(rt, func() (any, error) {
		access, refresh, err := c.Refresh(ctx, rt)
		if err != nil {
			tokens.clear()
			return nil, err
		}
		tokens.set(access, refresh)
		return nil, nil
	})
	return err
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, accessToken string) (*rawResponse, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal request failed: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	resp, err := c.breaker.Execute(func() (*rawResponse, error) {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+accessToken)
		}

		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		raw := &rawResponse{status: res.StatusCode, body: data}
		if res.StatusCode >= http.StatusInternalServerError {
			return raw, &APIError{StatusCode: res.StatusCode, Message: errorMessage(data)}
		}
		return raw, nil
	})
	if err == nil {
		return resp, nil
	}

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return nil, apiErr
	case errors.Is(err, circuitbreaker.ErrOpen):
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("%w: %s %s: %w", ErrServiceUnavailable, method, path, err)
	}
}

func decode(resp *rawResponse, out any) error {
	if resp.status < 200 || resp.status > 299 {
		return &APIError{StatusCode: resp.status, Message: errorMessage(resp.body)}
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return fmt.Errorf("decode response envelope failed: %w", err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data failed: %w", err)
	}
	return nil
}

// errorMessage pulls the API's message from either {message} or
// {error:{message}} bodies.
func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(env.Error, &nested) == nil && nested.Message != "" {
		return nested.Message
	}
	var plain string
	if json.Unmarshal(env.Error, &plain) == nil {
		return plain
	}
	return ""
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
