package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultCloudflareBaseURL = "https://api.cloudflare.com/client/v4"

// Cloudflare calls the Workers AI text-embedding endpoint. One request
// embeds a whole batch; callers keep batches at or below the documented
// per-minute neuron budget.
type Cloudflare struct {
	accountID string
	apiToken  string
	model     string
	baseURL   string
	client    *http.Client
}

// NewCloudflare creates a Workers AI embedder.
func NewCloudflare(accountID, apiToken, model string, timeout time.Duration) (*Cloudflare, error) {
	if accountID == "" || apiToken == "" {
		return nil, fmt.Errorf("cloudflare account ID and API token are required")
	}
	if model == "" {
		model = "@cf/baai/bge-base-en-v1.5"
	}
	return &Cloudflare{
		accountID: accountID,
		apiToken:  apiToken,
		model:     model,
		baseURL:   defaultCloudflareBaseURL,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type cloudflareRequest struct {
	Text []string `json:"text"`
}

type cloudflareResponse struct {
	Result struct {
		Data [][]float64 `json:"data"`
	} `json:"result"`
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// EmbedTexts embeds the batch and returns one vector per input, in order.
func (c *Cloudflare) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(cloudflareRequest{Text: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.accountID, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed cloudflareResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if !parsed.Success {
		msg := "unknown error"
		if len(parsed.Errors) > 0 {
			msg = parsed.Errors[0].Message
		}
		return nil, fmt.Errorf("embedding service reported failure: %s", msg)
	}
	if len(parsed.Result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(parsed.Result.Data))
	}

	return parsed.Result.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
