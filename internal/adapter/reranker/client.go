package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	ProviderNone   = "none"
	ProviderJina   = "jina"
	ProviderCohere = "cohere"
)

type endpoint struct {
	url   string
	model string
}

var endpoints = map[string]endpoint{
	ProviderJina:   {url: "https://api.jina.ai/v1/rerank", model: "jina-reranker-v2-base-multilingual"},
	ProviderCohere: {url: "https://api.cohere.ai/v1/rerank", model: "rerank-multilingual-v3.0"},
}

// Client orders search candidates by relevance to a query using a hosted
// rerank API. Jina and Cohere share the request and response shape.
type Client struct {
	apiKey   string
	provider string
	client   *http.Client
	baseURL  string
}

func NewClient(provider, apiKey string) *Client {
	return &Client{
		provider: provider,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Enabled reports whether Rerank calls a remote provider.
func (c *Client) Enabled() bool {
	_, ok := endpoints[c.provider]
	return ok
}

// Rerank returns indices into docs, most relevant first. Without a known
// provider the input order is returned.
func (c *Client) Rerank(ctx context.Context, query string, docs []string) ([]int, error) {
	ep, ok := endpoints[c.provider]
	if !ok || len(docs) == 0 {
		indices := make([]int, len(docs))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	if c.baseURL != "" {
		ep.url = c.baseURL
	}

	reqBody := map[string]interface{}{
		"model":     ep.model,
		"query":     query,
		"documents": docs,
		"top_n":     len(docs),
	}
	if c.provider == ProviderCohere {
		reqBody["return_documents"] = false
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s api error: %d: %s", c.provider, resp.StatusCode, bytes.TrimSpace(body))
	}

	var result struct {
		Results []struct {
			Index int     `json:"index"`
			Score float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	indices := make([]int, 0, len(docs))
	for _, r := range result.Results {
		if r.Index >= 0 && r.Index < len(docs) {
			indices = append(indices, r.Index)
		}
	}
	return indices, nil
}
