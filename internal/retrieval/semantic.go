package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Hit is one result of the external semantic retrieval service. Score may be
// on a 0..1 or 0..100 scale.
type Hit struct {
	ItemCode string   `json:"item_code"`
	Score    float64  `json:"score"`
	Title    string   `json:"title,omitempty"`
	FeeHint  *float64 `json:"fee_hint,omitempty"`
}

// Searcher queries a semantic retrieval service.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}

// HTTPSearcher calls a semantic retrieval service over HTTP/JSON.
type HTTPSearcher struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPSearcher creates a client for the search endpoint at url.
func NewHTTPSearcher(url, apiKey string, timeout time.Duration) *HTTPSearcher {
	return &HTTPSearcher{
		url:    strings.TrimRight(url, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// Search posts the query and decodes the ranked hits.
func (s *HTTPSearcher) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	jsonBody, err := json.Marshal(searchRequest{Query: query, TopK: k})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic search error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return apiResp.Results, nil
}

// NormalizeScore maps a 0..100 score onto 0..1 and clamps.
func NormalizeScore(s float64) float64 {
	if s > 1 {
		s /= 100
	}
	return clamp01(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Results []Hit `json:"results"`
}
