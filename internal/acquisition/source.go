package acquisition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/banshee-data/drops/internal/config"
	"github.com/banshee-data/drops/internal/httputil"
)

// Source produces environment payloads.
type Source interface {
	Fetch(ctx context.Context) (*Payload, error)
}

// HTTPSource fetches payloads with a GET request.
type HTTPSource struct {
	client httputil.HTTPClient
	url    string
}

// NewHTTPSource creates a source for url. A nil client uses http.DefaultClient.
func NewHTTPSource(client httputil.HTTPClient, url string) *HTTPSource {
	if client == nil {
		client = httputil.NewStandardClient(nil)
	}
	return &HTTPSource{client: client, url: url}
}

func (s *HTTPSource) Fetch(ctx context.Context) (*Payload, error) {
	var p Payload
	if err := httputil.GetJSON(ctx, s.client, s.url, &p); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	return &p, nil
}

// URL returns the endpoint the source fetches from.
func (s *HTTPSource) URL() string { return s.url }

// FileSource reads payloads from a JSON file on every fetch.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) (*Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", s.Path, err)
	}
	return &p, nil
}

// NewSource returns a FileSource when fixture is set, and otherwise an
// HTTPSource for the configured server with the configured request timeout.
func NewSource(cfg *config.Config, fixture string) Source {
	if fixture != "" {
		return FileSource{Path: fixture}
	}
	client := httputil.NewStandardClient(&http.Client{Timeout: cfg.GetRequestTimeout()})
	return NewHTTPSource(client, cfg.GetEnvURL())
}
