// Package provisioning holds the concrete adapters the tenant database saga
// drives: the hosting platform's HTTP API and the schema applier that
// prepares a fresh database.
package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/careerlog/careerlog-saas/domains/tenants/be/service"
)

// PlatformClient talks to the database hosting platform's management API.
type PlatformClient struct {
	baseURL      string
	organization string
	apiToken     string
	httpClient   *http.Client
}

var _ service.PlatformAPI = (*PlatformClient)(nil)

// PlatformClientConfig configures the management API client.
type PlatformClientConfig struct {
	BaseURL      string
	Organization string
	APIToken     string
	HTTPClient   *http.Client
}

func NewPlatformClient(cfg PlatformClientConfig) *PlatformClient {
	if cfg.BaseURL == "" {
		panic("platform client requires base url")
	}
	if cfg.Organization == "" {
		panic("platform client requires organization")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PlatformClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		organization: cfg.Organization,
		apiToken:     cfg.APIToken,
		httpClient:   client,
	}
}

type databasePayload struct {
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
}

type createDatabaseRequest struct {
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
}

type databaseResponse struct {
	Database databasePayload `json:"database"`
}

type createTokenResponse struct {
	JWT string `json:"jwt"`
}

// CreateDatabase asks the platform for a new database in the configured
// organization. A name conflict surfaces as service.ErrDatabaseExists so the
// caller can adopt the existing instance.
func (c *PlatformClient) CreateDatabase(ctx context.Context, name, group string) (service.DatabaseInstance, error) {
	body, err := json.Marshal(createDatabaseRequest{Name: name, Group: group})
	if err != nil {
		return service.DatabaseInstance{}, fmt.Errorf("encode create database request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/organizations/%s/databases", c.baseURL, url.PathEscape(c.organization))
	resp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return service.DatabaseInstance{}, err
	}
	defer resp.Body.Close() // nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return service.DatabaseInstance{}, service.ErrDatabaseExists
	default:
		return service.DatabaseInstance{}, c.statusError("create database", resp)
	}

	var out databaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return service.DatabaseInstance{}, fmt.Errorf("decode create database response: %w", err)
	}
	return service.DatabaseInstance{Name: out.Database.Name, Hostname: out.Database.Hostname}, nil
}

// GetDatabase fetches the location of an existing database.
func (c *PlatformClient) GetDatabase(ctx context.Context, name string) (service.DatabaseInstance, error) {
	endpoint := fmt.Sprintf("%s/v1/organizations/%s/databases/%s",
		c.baseURL, url.PathEscape(c.organization), url.PathEscape(name))
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return service.DatabaseInstance{}, err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return service.DatabaseInstance{}, c.statusError("get database", resp)
	}

	var out databaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return service.DatabaseInstance{}, fmt.Errorf("decode get database response: %w", err)
	}
	return service.DatabaseInstance{Name: out.Database.Name, Hostname: out.Database.Hostname}, nil
}

// CreateAuthToken mints a database access credential. readOnly selects the
// read-only authorization used for client-facing credentials.
func (c *PlatformClient) CreateAuthToken(ctx context.Context, dbName string, readOnly bool) (string, error) {
	authorization := "full-access"
	if readOnly {
		authorization = "read-only"
	}
	endpoint := fmt.Sprintf("%s/v1/organizations/%s/databases/%s/auth/tokens?authorization=%s",
		c.baseURL, url.PathEscape(c.organization), url.PathEscape(dbName), authorization)
	resp, err := c.do(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError("create auth token", resp)
	}

	var out createTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.JWT == "" {
		return "", fmt.Errorf("create auth token: empty token in response")
	}
	return out.JWT, nil
}

func (c *PlatformClient) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build platform request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call platform api: %w", err)
	}
	return resp, nil
}

func (c *PlatformClient) statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: platform returned %d: %s", op, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
