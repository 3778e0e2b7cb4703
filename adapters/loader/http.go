package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spindleworks/spindle/domain/manifest"
)

// maxManifestBytes bounds a fetched manifest body.
const maxManifestBytes = 4 << 20

// HTTP loads manifests from absolute http(s) addresses.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates an HTTP loader with the given request timeout.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

// Load fetches the manifest at the locator.
func (h *HTTP) Load(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &manifest.LoadError{Locator: locator, Err: err}
	}
	req.Header.Set("Accept", "application/yaml, application/json, text/plain")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &manifest.LoadError{Locator: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &manifest.LoadError{
			Locator: locator,
			Err:     fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, &manifest.LoadError{Locator: locator, Err: err}
	}
	return data, nil
}
