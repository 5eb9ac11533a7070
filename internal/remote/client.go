// Package remote talks to an HTTP rules backend: GET returns the starting assignment, POST
// accepts the canonical submission document.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ruleboard/internal/model"

	"go.uber.org/zap"
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := truncateRunes(strings.TrimSpace(e.Body), 200)
	if body == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.Status, body)
}

// truncateRunes cuts s to at most n runes so a multibyte body never splits mid-rune.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}

type Config struct {
	LoadURL   string
	SubmitURL string
	Timeout   time.Duration
	Headers   map[string]string
}

// Client implements editor.Loader and editor.Submitter over HTTP.
type Client struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

func (c *Client) LoadAssignment(ctx context.Context) (model.Assignment, error) {
	url := strings.TrimSpace(c.cfg.LoadURL)
	if url == "" {
		return model.Assignment{}, errors.New("remote: loadUrl is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("load request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.Assignment{}, &StatusError{Op: "load", Status: resp.StatusCode, Body: string(b)}
	}
	var a model.Assignment
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return model.Assignment{}, fmt.Errorf("failed to decode assignment: %w", err)
	}
	c.log.Debug("remote load", zap.String("url", url), zap.Int("templates", len(a.Catalog)), zap.Int("buckets", len(a.Buckets)))
	return a, nil
}

type submitResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (c *Client) SubmitAssignment(ctx context.Context, doc model.Document) (model.SubmitResult, error) {
	url := strings.TrimSpace(c.cfg.SubmitURL)
	if url == "" {
		return model.SubmitResult{}, errors.New("remote: submitUrl is not configured")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to marshal document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.SubmitResult{}, fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode/100 != 2 {
		return model.SubmitResult{}, &StatusError{Op: "submit", Status: resp.StatusCode, Body: string(raw)}
	}

	res := model.SubmitResult{
		SubmittedAt: time.Now().UTC(),
		Target:      url,
		Status:      resp.StatusCode,
	}
	// The response body is optional; a JSON {id, message} is recorded when present.
	var sr submitResponse
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &sr) == nil {
		res.ID = sr.ID
		res.Message = sr.Message
	}
	c.log.Info("remote submit", zap.String("url", url), zap.Int("status", resp.StatusCode), zap.String("id", res.ID))
	return res, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	for k, v := range c.cfg.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		req.Header.Set(k, v)
	}
}
