// Package tokenbank реализует HTTP-клиент примитива токен-балансов:
// переводы, списания по доверенности, остатки и allowance. Все операции
// атомарны на стороне сервиса — ошибка означает, что средства не двигались.
package tokenbank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client клиент токен-банка. Авторизуется ключом аккаунта движка, поэтому
// Transfer и Approve действуют от имени резерва.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент токен-банка.
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) doMutation(ctx context.Context, op, path string, body any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var opResp OperationResponse
	if err := json.NewDecoder(resp.Body).Decode(&opResp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if opResp.Status != "ok" {
		return fmt.Errorf("%s: rejected: %s", op, opResp.Error)
	}
	return nil
}

// BalanceOf возвращает остаток аккаунта.
func (c *Client) BalanceOf(ctx context.Context, account string) (uint64, error) {
	const op = "tokenbank.BalanceOf"
	req, err := c.newRequest(ctx, http.MethodGet, "/balance/"+url.PathEscape(account), nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var balanceResp BalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balanceResp); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balanceResp.Balance, nil
}

// Transfer переводит amount с аккаунта движка на аккаунт to.
func (c *Client) Transfer(ctx context.Context, to string, amount uint64) error {
	return c.doMutation(ctx, "tokenbank.Transfer", "/transfer", TransferRequest{To: to, Amount: amount})
}

// TransferFrom переводит amount с аккаунта from на аккаунт to в пределах
// доверенности, выданной плательщиком движку.
func (c *Client) TransferFrom(ctx context.Context, from, to string, amount uint64) error {
	return c.doMutation(ctx, "tokenbank.TransferFrom", "/transfer-from", TransferRequest{From: from, To: to, Amount: amount})
}

// Approve разрешает spender списывать с аккаунта движка не более amount.
func (c *Client) Approve(ctx context.Context, spender string, amount uint64) error {
	return c.doMutation(ctx, "tokenbank.Approve", "/approve", ApproveRequest{Spender: spender, Amount: amount})
}
