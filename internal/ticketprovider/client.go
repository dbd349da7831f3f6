// Package ticketprovider реализует HTTP-клиент внешнего лотерейного сервиса:
// чтение цены билета и покупку билетов в пользу получателя.
package ticketprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client клиент лотерейного сервиса.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт новый клиент лотерейного сервиса.
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

// TicketPrice возвращает текущую цену одного билета. Чистое чтение.
func (c *Client) TicketPrice(ctx context.Context) (uint64, error) {
	const op = "ticketprovider.TicketPrice"
	req, err := c.newRequest(ctx, http.MethodGet, "/price", nil)
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

	var priceResp PriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return priceResp.Price, nil
}

// Purchase покупает билеты на сумму amount в пользу recipient. Средства
// сервис списывает с резерва движка в пределах выданного allowance.
func (c *Client) Purchase(ctx context.Context, referrer string, amount uint64, recipient string) error {
	const op = "ticketprovider.Purchase"
	req, err := c.newRequest(ctx, http.MethodPost, "/purchase", PurchaseRequest{
		Referrer:  referrer,
		Amount:    amount,
		Recipient: recipient,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var purchaseResp PurchaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&purchaseResp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if purchaseResp.Status != "ok" {
		return fmt.Errorf("%s: purchase rejected: %s", op, purchaseResp.Error)
	}
	return nil
}
