package condastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API defines the catalog service calls the rest of storeview depends on.
// This interface is implemented by *Client and can be used for testing.
type API interface {
	FetchStatus(ctx context.Context) (*ServerStatus, error)
	FetchEnvironments(ctx context.Context, query PageQuery) (Page[Environment], error)
	FetchPackages(ctx context.Context, query PageQuery) (Page[Package], error)
	FetchCurrentBuild(ctx context.Context, namespace, environment string) (int64, error)
	FetchBuildPackages(ctx context.Context, buildID int64, query PageQuery) (Page[Package], error)
	FetchChannels(ctx context.Context) ([]Channel, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the conda-store HTTP API.
type Client struct {
	baseURL   *url.URL
	prefix    string
	http      *http.Client
	userAgent string
}

const (
	defaultServerURL = "http://localhost:5000"
	defaultAPIPrefix = "/api/v1"
	defaultUserAgent = "storeview/0.1"
	requestTimeout   = 10 * time.Second
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// PageQuery configures paginated list requests.
type PageQuery struct {
	Page   int
	Size   int
	Search string
}

func (q PageQuery) values() url.Values {
	values := url.Values{}
	if search := strings.TrimSpace(q.Search); search != "" {
		values.Set("search", search)
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	values.Set("page", strconv.Itoa(page))
	if q.Size > 0 {
		values.Set("size", strconv.Itoa(q.Size))
	}
	return values
}

// NewClient builds a Client for serverURL. apiPrefix defaults to /api/v1 and
// timeout to 10s when zero.
func NewClient(serverURL, apiPrefix string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		baseURL: base,
		prefix:  normalizePrefix(apiPrefix),
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized server URL including the API prefix.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	u := *c.baseURL
	u.Path = c.baseURL.Path + c.prefix
	return u.String()
}

// FetchStatus requests the API root.
func (c *Client) FetchStatus(ctx context.Context) (*ServerStatus, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload ServerStatus
	if err := c.get(ctx, "/", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchEnvironments retrieves one page of environments.
func (c *Client) FetchEnvironments(ctx context.Context, query PageQuery) (Page[Environment], error) {
	if c == nil {
		return Page[Environment]{}, fmt.Errorf("client is nil")
	}
	values := query.values()
	values.Del("search")
	var payload Page[Environment]
	if err := c.get(ctx, "/environment/", values, &payload); err != nil {
		return Page[Environment]{}, err
	}
	return payload, nil
}

// FetchPackages retrieves one page of the global catalog, distinct on name
// and version and sorted by name.
func (c *Client) FetchPackages(ctx context.Context, query PageQuery) (Page[Package], error) {
	if c == nil {
		return Page[Package]{}, fmt.Errorf("client is nil")
	}
	values := query.values()
	values.Add("distinct_on", "name")
	values.Add("distinct_on", "version")
	values.Set("sort_by", "name")
	var payload Page[Package]
	if err := c.get(ctx, "/package/", values, &payload); err != nil {
		return Page[Package]{}, err
	}
	return payload, nil
}

// FetchCurrentBuild resolves the current build id of namespace/environment.
func (c *Client) FetchCurrentBuild(ctx context.Context, namespace, environment string) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	namespace = strings.TrimSpace(namespace)
	environment = strings.TrimSpace(environment)
	if namespace == "" || environment == "" {
		return 0, fmt.Errorf("namespace and environment required")
	}
	route := "/environment/" + namespace + "/" + environment + "/"
	rawRoute := "/environment/" + url.PathEscape(namespace) + "/" + url.PathEscape(environment) + "/"
	var payload environmentDetail
	if err := c.doURL(ctx, c.resolve(route, rawRoute, nil), &payload); err != nil {
		return 0, err
	}
	if payload.Data.CurrentBuildID <= 0 {
		return 0, fmt.Errorf("environment %s/%s has no current build", namespace, environment)
	}
	return payload.Data.CurrentBuildID, nil
}

// FetchBuildPackages retrieves one page of the packages installed in a build,
// sorted by name.
func (c *Client) FetchBuildPackages(ctx context.Context, buildID int64, query PageQuery) (Page[Package], error) {
	if c == nil {
		return Page[Package]{}, fmt.Errorf("client is nil")
	}
	if buildID <= 0 {
		return Page[Package]{}, fmt.Errorf("build id required")
	}
	values := query.values()
	values.Set("sort_by", "name")
	var payload Page[Package]
	route := "/build/" + strconv.FormatInt(buildID, 10) + "/packages/"
	if err := c.get(ctx, route, values, &payload); err != nil {
		return Page[Package]{}, err
	}
	return payload, nil
}

// FetchChannels lists the configured channels. Both a bare array and the
// paginated envelope are accepted.
func (c *Client) FetchChannels(ctx context.Context) ([]Channel, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/channel/", nil, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var channels []Channel
		if err := json.Unmarshal(trimmed, &channels); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return channels, nil
	}
	var page Page[Channel]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return page.Data, nil
}

func (c *Client) get(ctx context.Context, route string, values url.Values, dest any) error {
	return c.doURL(ctx, c.resolve(route, "", values), dest)
}

func (c *Client) resolve(route, rawRoute string, values url.Values) *url.URL {
	u := *c.baseURL
	u.Path = c.baseURL.Path + c.prefix + route
	if rawRoute != "" {
		u.RawPath = c.baseURL.EscapedPath() + c.prefix + rawRoute
	}
	if len(values) > 0 {
		u.RawQuery = values.Encode()
	}
	return &u
}

func (c *Client) doURL(ctx context.Context, reqURL *url.URL, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Path: strings.TrimPrefix(reqURL.Path, c.baseURL.Path), Code: resp.StatusCode}
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		trimmed = defaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server_url %q: %w", serverURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server_url %q: missing host", serverURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func normalizePrefix(prefix string) string {
	trimmed := strings.Trim(strings.TrimSpace(prefix), "/")
	if trimmed == "" {
		return defaultAPIPrefix
	}
	return "/" + trimmed
}
