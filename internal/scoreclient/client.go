// internal/scoreclient/client.go
//
// HTTP client for a remote Scoring API.
// Implements round.Submitter by posting to POST {base}/game/{game}/score.

package scoreclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/robalobadob/gamecentr/internal/round"
)

type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		headers: map[string]string{"Content-Type": "application/json"},
	}
}

func (c *Client) SetHeader(key, value string) { c.headers[key] = value }

func (c *Client) SetTimeout(timeout time.Duration) { c.client.Timeout = timeout }

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Submit posts one score. A non-2xx status or success=false is an error.
func (c *Client) Submit(ctx context.Context, s round.Submission) (round.SubmitResult, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return round.SubmitResult{}, fmt.Errorf("encode submission: %w", err)
	}
	endpoint := "/game/" + url.PathEscape(s.Game) + "/score"
	raw, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return round.SubmitResult{}, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return round.SubmitResult{}, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return round.SubmitResult{}, fmt.Errorf("scoring API rejected score: %s", env.Message)
	}
	var data any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return round.SubmitResult{}, fmt.Errorf("decode data: %w", err)
		}
	}
	return round.SubmitResult{Success: true, Data: data}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}
	return responseBody, nil
}
