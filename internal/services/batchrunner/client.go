// Package batchrunner периодически дёргает HTTP API движка, запуская
// обработку всех батчей текущего дня. Движок сам отвергает повторные
// и преждевременные запуски, поэтому драйвер может работать чаще
// интервала обработки и в нескольких экземплярах.
package batchrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client HTTP-клиент API движка для запуска батчей.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient создает новый Client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type countResponse struct {
	Status string `json:"status"`
	Data   struct {
		NumberOfBatches uint64 `json:"number_of_batches"`
	} `json:"data"`
}

// NumberOfBatches возвращает число батчей текущего реестра.
func (c *Client) NumberOfBatches(ctx context.Context) (uint64, error) {
	const op = "batchrunner.Client.NumberOfBatches"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/batches/count", nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var out countResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return out.Data.NumberOfBatches, nil
}

// ProcessBatch запускает обработку батча batchIndex.
// Возвращает rejected=true, если движок отверг запуск (батч уже
// обработан, день ещё не настал или движок приостановлен).
func (c *Client) ProcessBatch(ctx context.Context, batchIndex uint64) (rejected bool, err error) {
	const op = "batchrunner.Client.ProcessBatch"

	url := fmt.Sprintf("%s/api/v1/batches/%d/process", c.baseURL, batchIndex)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		return false, nil
	case http.StatusConflict, http.StatusTooEarly, http.StatusServiceUnavailable:
		return true, nil
	default:
		return false, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}
}
