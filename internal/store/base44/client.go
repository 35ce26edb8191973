// Package base44 implements the domain store interfaces against the Base44
// entity REST API. Opportunities, trade logs and exchange credentials all
// live there as JSON entities.
package base44

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/arbiterx/arbiter/internal/domain"
)

// Client is the REST client for the Base44 entity API.
type Client struct {
	baseURL    string
	appToken   string
	httpClient *http.Client
}

// NewClient creates a Base44 entity client.
//
// baseURL is the app's API root, e.g.
// "https://app.base44.com/api/apps/<app-id>". appToken authenticates every
// request via the api_key header.
func NewClient(baseURL, appToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		appToken: appToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateEntity persists a new record of the given entity type and returns
// the server-assigned ID.
func (c *Client) CreateEntity(ctx context.Context, entity string, record any) (string, error) {
	path := "/entities/" + url.PathEscape(entity)

	body, err := c.do(ctx, http.MethodPost, path, record)
	if err != nil {
		return "", fmt.Errorf("base44: create %s: %w", entity, err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("base44: decode create response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("base44: create %s: response missing id", entity)
	}
	return resp.ID, nil
}

// GetEntity fetches one record by ID and decodes it into out.
func (c *Client) GetEntity(ctx context.Context, entity, id string, out any) error {
	path := fmt.Sprintf("/entities/%s/%s", url.PathEscape(entity), url.PathEscape(id))

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("base44: get %s %s: %w", entity, id, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("base44: decode %s %s: %w", entity, id, err)
	}
	return nil
}

// ListEntities fetches all records of an entity type and decodes them into
// out, which must be a pointer to a slice.
func (c *Client) ListEntities(ctx context.Context, entity string, out any) error {
	path := "/entities/" + url.PathEscape(entity)

	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("base44: list %s: %w", entity, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("base44: decode %s list: %w", entity, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api_key", c.appToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Detail
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized: %s", msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: %s", msg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}
