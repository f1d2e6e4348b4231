// Package catalog defines the public catalog collaborator contract and its
// HTTP implementation. Calls are idempotent per remote id; the engine never
// retries them automatically.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spec-kit/template-studio/internal/domain"
)

// Publisher is consumed by the core exactly at the publish and archive
// transitions and on explicit re-sync requests.
type Publisher interface {
	Publish(ctx context.Context, template *domain.Template) (string, error)
	Update(ctx context.Context, remoteID string, template *domain.Template) error
	Delete(ctx context.Context, remoteID string) error
}

// Config holds catalog endpoint settings.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// HTTPPublisher talks to the catalog over its REST surface.
type HTTPPublisher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPPublisher constructs the adapter.
func NewHTTPPublisher(cfg Config) *HTTPPublisher {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPublisher{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type catalogEntry struct {
	LocalID       string   `json:"local_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	DepartmentIDs []string `json:"department_ids"`
	PriceCents    int64    `json:"price_cents"`
}

type publishResponse struct {
	ID string `json:"id"`
}

// Publish creates the remote record and returns its identifier.
func (p *HTTPPublisher) Publish(ctx context.Context, template *domain.Template) (string, error) {
	var resp publishResponse
	if err := p.call(ctx, http.MethodPost, "/entries", entryFrom(template), &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("catalog returned empty id")
	}
	return resp.ID, nil
}

// Update rewrites the remote record in place.
func (p *HTTPPublisher) Update(ctx context.Context, remoteID string, template *domain.Template) error {
	return p.call(ctx, http.MethodPut, "/entries/"+remoteID, entryFrom(template), nil)
}

// Delete removes the remote record. Deleting an already-absent id succeeds.
func (p *HTTPPublisher) Delete(ctx context.Context, remoteID string) error {
	return p.call(ctx, http.MethodDelete, "/entries/"+remoteID, nil, nil)
}

func entryFrom(template *domain.Template) catalogEntry {
	return catalogEntry{
		LocalID:       template.ID,
		Title:         template.Title,
		Description:   template.Description,
		DepartmentIDs: template.DepartmentIDs,
		PriceCents:    template.PriceCents,
	}
}

func (p *HTTPPublisher) call(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("catalog %s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
