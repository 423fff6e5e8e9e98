package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sooahkim/childcenter-chat/pkg/config"
)

const defaultCallTimeout = 30 * time.Second

// Client calls the RunPod-hosted generation endpoint. Callers own the request
// deadline; a default is applied when the context carries none.
type Client struct {
	baseURL    string
	embedURL   string
	modelKey   string
	httpClient *http.Client
}

// NewClient creates a new RunPod client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, errors.New("runpod base url is required")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("runpod base url must start with http(s): %s", cfg.BaseURL)
	}

	modelKey := cfg.ModelKey
	if modelKey == "" {
		modelKey = "base"
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		embedURL:   cfg.EmbedURL,
		modelKey:   modelKey,
		httpClient: &http.Client{},
	}, nil
}

type generateRequest struct {
	Prompt       string `json:"prompt"`
	MaxNewTokens int    `json:"max_new_tokens"`
	ModelKey     string `json:"model_key"`
}

// Invoke sends a prompt to the generation endpoint and returns the raw text.
// Any network, status, or response-shape failure is returned as an error;
// callers degrade to their deterministic fallback.
func (c *Client) Invoke(ctx context.Context, prompt string, maxTokens int, modelKey string) (string, error) {
	if modelKey == "" {
		modelKey = c.modelKey
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}

	body, err := json.Marshal(generateRequest{
		Prompt:       prompt,
		MaxNewTokens: maxTokens,
		ModelKey:     modelKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordLLMMetric(ctx, modelKey, 0, time.Since(start), err)
		return "", fmt.Errorf("runpod request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("runpod request failed with status %d", resp.StatusCode)
		recordLLMMetric(ctx, modelKey, resp.StatusCode, time.Since(start), statusErr)
		return "", statusErr
	}

	var payload interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		recordLLMMetric(ctx, modelKey, resp.StatusCode, time.Since(start), err)
		return "", fmt.Errorf("runpod response is not valid json: %w", err)
	}

	text := extractText(payload)
	if text == "" {
		emptyErr := errors.New("runpod response missing output text")
		recordLLMMetric(ctx, modelKey, resp.StatusCode, time.Since(start), emptyErr)
		return "", emptyErr
	}

	recordLLMMetric(ctx, modelKey, resp.StatusCode, time.Since(start), nil)
	return text, nil
}

type embedRequest struct {
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the dense vector for a query string from the embedding
// endpoint. The endpoint serves an e5-family model; queries are prefixed
// the way the model expects.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embedURL == "" {
		return nil, errors.New("runpod embed url is not configured")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}

	body, err := json.Marshal(embedRequest{Input: "query: " + text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.embedURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embed request failed with status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embed response is not valid json: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, errors.New("embed response missing embedding")
	}

	return parsed.Embedding, nil
}

// extractText tolerates the response shapes serverless inference backends
// actually return: a bare string, {"text": ...}, {"output": ...},
// {"output": [{"generated_text": ...}]}, or OpenAI-style choices.
func extractText(data interface{}) string {
	switch v := data.(type) {
	case string:
		return strings.TrimSpace(v)
	case []interface{}:
		if len(v) > 0 {
			return extractText(v[0])
		}
	case map[string]interface{}:
		for _, key := range []string{"text", "generated_text", "result", "content"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		if out, ok := v["output"]; ok {
			if s := extractText(out); s != "" {
				return s
			}
		}
		if choices, ok := v["choices"].([]interface{}); ok && len(choices) > 0 {
			if c0, ok := choices[0].(map[string]interface{}); ok {
				if s, ok := c0["text"].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
				if msg, ok := c0["message"].(map[string]interface{}); ok {
					if s, ok := msg["content"].(string); ok {
						return strings.TrimSpace(s)
					}
				}
			}
		}
	}
	return ""
}
