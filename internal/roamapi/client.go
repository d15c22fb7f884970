package roamapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/starford/bindrune/internal/apperr"
)

var mediaTypeRe = regexp.MustCompile(`^[\w-]+/[\w-]+$`)

// Fetcher retrieves one asset by its remote locator. The bundler consumes
// this interface; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Asset, error)
}

// Client is the HTTP implementation of Fetcher against the Local API.
// It performs no retries; callers decide whether a failure is worth another
// attempt.
type Client struct {
	endpoint Endpoint
	token    string
	http     *http.Client
}

// NewClient returns a client for the given endpoint using token as the
// bearer credential.
func NewClient(endpoint Endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type fileGetArg struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

type fileGetPayload struct {
	Action string       `json:"action"`
	Args   []fileGetArg `json:"args"`
}

type fileGetResult struct {
	Base64   string `json:"base64"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
}

type fileGetResponse struct {
	Result *fileGetResult `json:"result"`
}

// Fetch asks the Local API for the asset behind url via a file.get action.
// The response carries the binary base64-encoded.
//
// Failures map onto the taxonomy: transport errors become ErrNetwork,
// 401/403 become ErrAuth, 404 becomes ErrAssetNotFound, and anything the
// client cannot interpret (including other status codes) becomes ErrProtocol.
func (c *Client) Fetch(ctx context.Context, url string) (*Asset, error) {
	payload := fileGetPayload{
		Action: "file.get",
		Args:   []fileGetArg{{URL: url, Format: "base64"}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("roamapi: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("roamapi: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", apperr.ErrAuth, resp.StatusCode)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", apperr.ErrAssetNotFound, url)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", apperr.ErrProtocol, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", apperr.ErrNetwork, err)
	}
	return assetFromResponse(raw)
}

// assetFromResponse parses a file.get response body into an Asset.
func assetFromResponse(raw []byte) (*Asset, error) {
	var parsed fileGetResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", apperr.ErrProtocol, err)
	}
	if parsed.Result == nil {
		return nil, fmt.Errorf("%w: missing result field", apperr.ErrProtocol)
	}
	contents, err := base64.StdEncoding.DecodeString(parsed.Result.Base64)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", apperr.ErrProtocol, err)
	}
	asset := &Asset{
		FileName:  parsed.Result.Filename,
		MediaType: parsed.Result.Mimetype,
		Contents:  contents,
		FetchedAt: time.Now(),
	}
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid asset: %v", apperr.ErrProtocol, err)
	}
	return asset, nil
}
