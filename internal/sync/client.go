package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/enriquemoya/cardstock-backend/pkg/config"
	pkgerrors "github.com/enriquemoya/cardstock-backend/pkg/errors"
)

// Client is the HTTP implementation of EventFeed against the cloud API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds the cloud feed client from the sync configuration.
func NewClient(cfg config.SyncConfig) (*Client, error) {
	if cfg.CloudBaseURL == "" {
		return nil, fmt.Errorf("cloud base url required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.CloudBaseURL,
		apiKey:  cfg.CloudAPIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// FetchPendingEvents pulls events that occurred after the given cursor.
func (c *Client) FetchPendingEvents(ctx context.Context, posID string, since time.Time) ([]CloudEvent, error) {
	endpoint := fmt.Sprintf("%s/v1/pos/%s/events?since=%s",
		c.baseURL, url.PathEscape(posID), url.QueryEscape(since.UTC().Format(time.RFC3339Nano)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cloud event fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "cloud event fetch")
	}

	var payload struct {
		Events []CloudEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cloud event decode failed")
	}
	return payload.Events, nil
}

// AcknowledgeEvents reports applied event ids back to the cloud. The cloud
// side treats the call as idempotent, so redelivering an ack is harmless.
func (c *Client) AcknowledgeEvents(ctx context.Context, posID string, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string]any{"event_ids": eventIDs})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/v1/pos/%s/events/ack", c.baseURL, url.PathEscape(posID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cloud event ack failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.statusError(resp, "cloud event ack")
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) statusError(resp *http.Response, operation string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return pkgerrors.New(pkgerrors.CodeDependency,
		fmt.Sprintf("%s returned %d", operation, resp.StatusCode)).
		WithDetails(map[string]any{"body": string(snippet)})
}
