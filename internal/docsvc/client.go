// Package docsvc talks to the external document service that splits exam
// papers and renders per-question review artifacts. The core stores and
// forwards the path strings it returns and never interprets them.
package docsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"exam-session-service/internal/domain"
)

// Client is the HTTP implementation of app.DocumentService.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	RecordID    string `json:"recordId"`
	QuestionKey string `json:"questionKey"`
	Content     string `json:"content"`
}

type generateResponse struct {
	Path string `json:"path"`
}

// GenerateArtifact asks the document service to render one question's answer
// into a reviewable document and returns the stored path.
func (c *Client) GenerateArtifact(ctx context.Context, recordID, questionKey, content string) (string, error) {
	body, err := json.Marshal(generateRequest{RecordID: recordID, QuestionKey: questionKey, Content: content})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/artifacts/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrUpstream, resp.StatusCode, msg)
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	return out.Path, nil
}

// Release tells the document service a stored artifact is no longer
// referenced. Callers treat failures as non-fatal.
func (c *Client) Release(ctx context.Context, ref string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/artifacts?path="+url.QueryEscape(ref), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}
	return nil
}
