package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/reelscout/reelscout/internal/cache"
	"github.com/reelscout/reelscout/provider"
)

// ErrMissingAPIKey is returned when the rendering tier is enabled without a key.
var ErrMissingAPIKey = errors.New("rendering API key is not set")

// RenderClient delegates rendering to a paid JavaScript rendering service.
// Successful responses are cached so retries of the same page cost nothing.
type RenderClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cache    *cache.Store
}

// NewRenderClient validates the endpoint and key. A nil store disables caching.
func NewRenderClient(endpoint, apiKey string, client *http.Client, store *cache.Store) (*RenderClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if u, err := url.Parse(endpoint); err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid rendering endpoint %q", endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RenderClient{endpoint: endpoint, apiKey: apiKey, client: client, cache: store}, nil
}

// Render implements Renderer.
func (r *RenderClient) Render(ctx context.Context, target string, _ *provider.Profile) ([]byte, error) {
	key := cache.Key("render", target)
	if r.cache != nil {
		if body, ok := r.cache.Get(key); ok {
			return body, nil
		}
	}

	u, _ := url.Parse(r.endpoint)
	q := u.Query()
	q.Set("api_key", r.apiKey)
	q.Set("url", target)
	q.Set("javascript", "true")
	q.Set("premium_proxy", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rendering API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Tier: RenderAPI, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("rendering API: read body: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("rendering API returned an empty body")
	}

	if r.cache != nil {
		_ = r.cache.Put(key, body)
	}
	return body, nil
}

// Forget evicts a cached page that the classifier rejected.
func (r *RenderClient) Forget(target string) {
	if r.cache != nil {
		_ = r.cache.Delete(cache.Key("render", target))
	}
}
