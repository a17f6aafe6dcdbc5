// Package qgen calls the question-generation collaborator. Suggested
// questions are merged into a certification's question list only after
// passing the same validation as hand-written ones.
package qgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"certflow/pkg/domain"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{}}
}

// SuggestQuestions asks the generator for question suggestions matching a
// free-text requirement. Returned questions carry no ids; the workflow
// assigns them on merge.
func (c *Client) SuggestQuestions(ctx context.Context, requirement string, limit int) ([]domain.Question, error) {
	body := map[string]any{"requirement": requirement, "limit": limit}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/suggest-questions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qgen request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qgen returned %d", resp.StatusCode)
	}
	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("qgen decode: %w", err)
	}
	return out.Questions, nil
}
