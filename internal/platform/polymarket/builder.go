// Package polymarket provides the REST client for the Polymarket builder
// trade feed.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/buildertrades/internal/crypto"
	"github.com/alanyoungcy/buildertrades/internal/domain"
)

const (
	tradesPath = "/builder/trades"
	timePath   = "/time"
)

// BuilderClient fetches builder-attributed trades from the Polymarket CLOB
// API using HMAC builder credentials. It implements domain.TradeFeed.
type BuilderClient struct {
	baseURL    string
	httpClient *http.Client
	auth       *crypto.BuilderAuth
}

// NewBuilderClient creates a new builder feed client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewBuilderClient(baseURL string, auth *crypto.BuilderAuth) *BuilderClient {
	return &BuilderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		auth: auth,
	}
}

// Host returns the feed's base URL.
func (c *BuilderClient) Host() string {
	return c.baseURL
}

// FetchPage retrieves one page of builder trades. cursor is empty for the
// first page and otherwise carries the next_cursor of the previous page.
func (c *BuilderClient) FetchPage(ctx context.Context, cursor string) (domain.TradePage, error) {
	path := tradesPath
	if cursor != "" {
		params := url.Values{}
		params.Set("next_cursor", cursor)
		path += "?" + params.Encode()
	}

	body, err := c.doSignedGet(ctx, path)
	if err != nil {
		return domain.TradePage{}, fmt.Errorf("polymarket/builder: fetch trades page: %w", err)
	}

	var apiPage APITradePage
	if err := json.Unmarshal(body, &apiPage); err != nil {
		return domain.TradePage{}, fmt.Errorf("polymarket/builder: decode trades page: %w", err)
	}

	page, err := apiPage.ToDomainPage()
	if err != nil {
		return domain.TradePage{}, fmt.Errorf("polymarket/builder: decode trade record: %w", err)
	}

	return page, nil
}

// ServerTime returns the venue's current Unix epoch seconds. The endpoint
// responds with either a bare number or a JSON-quoted one.
func (c *BuilderClient) ServerTime(ctx context.Context) (int64, error) {
	body, err := c.doSignedGet(ctx, timePath)
	if err != nil {
		return 0, fmt.Errorf("polymarket/builder: get server time: %w", err)
	}

	text := strings.Trim(strings.TrimSpace(string(body)), `"`)
	epoch, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("polymarket/builder: parse server time %q: %w", text, err)
	}

	return epoch, nil
}

// doSignedGet builds, signs, sends, and reads a GET request against the
// builder API. Non-2xx responses become a *domain.APIError carrying the
// status code and response body.
func (c *BuilderClient) doSignedGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// The signature covers the path without query parameters.
	signPath := path
	if i := strings.IndexByte(signPath, '?'); i >= 0 {
		signPath = signPath[:i]
	}
	for k, v := range c.auth.Headers(http.MethodGet, signPath, "") {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.APIError{
			Status:  resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
			Body:    string(body),
		}
	}

	return body, nil
}

// Compile-time interface check.
var _ domain.TradeFeed = (*BuilderClient)(nil)
