package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EvaluatorClient posts submission payloads to the external policy
// evaluator. Constructed once at startup and never mutated afterwards,
// so it is safe to share across requests.
type EvaluatorClient struct {
	url    string
	client *http.Client
}

func NewEvaluatorClient(url string, timeout time.Duration) *EvaluatorClient {
	return &EvaluatorClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *EvaluatorClient) Evaluate(ctx context.Context, req EvaluatorRequest) (*EvaluatorResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &EvaluatorUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &EvaluatorUnavailableError{Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var out EvaluatorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &EvaluatorUnavailableError{Cause: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}
