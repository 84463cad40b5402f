// Package crmsync pushes committed lead changes to the external CRM.
package crmsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

const defaultTimeout = 10 * time.Second

// ErrRejected wraps 4xx answers; retrying the same contact will not help.
var ErrRejected = errors.New("crm rejected contact")

type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	log      *logger.Logger
}

// NewClient returns nil when no CRM endpoint is configured.
func NewClient(cfg config.CRMSyncConfig, log *logger.Logger) *Client {
	if !cfg.IsCRMSyncEnabled() {
		return nil
	}

	timeout := cfg.GetCRMTimeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetCRMBaseURL(), "/"),
		apiToken: cfg.GetCRMAPIToken(),
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

// UpsertContact updates the contact when it carries an ID and creates it
// otherwise. It returns the CRM contact ID.
func (c *Client) UpsertContact(ctx context.Context, contact Contact) (string, error) {
	if c == nil {
		return "", nil
	}

	method := http.MethodPost
	endpoint := c.baseURL + "/contacts"
	if contact.ID != "" {
		method = http.MethodPut
		endpoint = fmt.Sprintf("%s/contacts/%s", c.baseURL, url.PathEscape(contact.ID))
	}

	body, err := json.Marshal(contact)
	if err != nil {
		return "", fmt.Errorf("marshal crm contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crm request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read crm response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(string(data))
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %d: %s", ErrRejected, resp.StatusCode, msg)
		}
		return "", fmt.Errorf("crm returned %d: %s", resp.StatusCode, msg)
	}

	var envelope contactEnvelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &envelope); err != nil {
			return "", fmt.Errorf("decode crm response: %w", err)
		}
	}

	id := envelope.Contact.ID
	if id == "" {
		id = contact.ID
	}
	if id == "" {
		return "", errors.New("crm response carried no contact id")
	}

	c.log.Info("crm contact upserted", "method", method, "contact_id", id)
	return id, nil
}
