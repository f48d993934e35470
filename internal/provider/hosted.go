package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/logging"
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// Default REST endpoints for hosted providers that do not declare their own.
const (
	defaultAddEndpoint    = "/contexts"
	defaultSearchEndpoint = "/search"
	defaultClearEndpoint  = "/contexts"
)

// Hosted talks to a memory provider over HTTP/JSON. Every request carries the
// scope tag so the remote store can partition runs.
type Hosted struct {
	name   string
	scope  string
	cfg    *config.HostedProvider
	client *http.Client
	log    *zap.Logger
}

// NewHosted creates the HTTP adapter from a hosted provider config.
func NewHosted(name, scope string, cfg *config.HostedProvider) (*Hosted, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("provider %s: hosted config requires a url", name)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("provider %s: bad url: %w", name, err)
	}
	timeout := 60 * time.Second
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Hosted{
		name:   name,
		scope:  scope,
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    logging.Named("provider"),
	}, nil
}

// Name implements Provider.
func (h *Hosted) Name() string { return h.name }

type hostedAddRequest struct {
	Scope    string               `json:"scope"`
	Contexts []types.PreparedData `json:"contexts"`
}

// AddContext implements Provider.
func (h *Hosted) AddContext(ctx context.Context, data []types.PreparedData) error {
	endpoint := h.endpoint(h.cfg.Endpoints.Add, defaultAddEndpoint)
	return h.do(ctx, http.MethodPost, endpoint, hostedAddRequest{Scope: h.scope, Contexts: data}, nil)
}

type hostedSearchRequest struct {
	Scope         string  `json:"scope"`
	Query         string  `json:"query"`
	Limit         int     `json:"limit,omitempty"`
	Threshold     float64 `json:"threshold,omitempty"`
	IncludeChunks bool    `json:"includeChunks,omitempty"`
}

type hostedSearchResponse struct {
	Results []types.SearchResult `json:"results"`
}

// Search implements Provider.
func (h *Hosted) Search(ctx context.Context, query string, opts SearchOptions) ([]types.SearchResult, error) {
	endpoint := h.endpoint(h.cfg.Endpoints.Search, defaultSearchEndpoint)
	var resp hostedSearchResponse
	err := h.do(ctx, http.MethodPost, endpoint, hostedSearchRequest{
		Scope:         h.scope,
		Query:         query,
		Limit:         opts.Limit,
		Threshold:     opts.Threshold,
		IncludeChunks: opts.IncludeChunks,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Clear implements Provider.
func (h *Hosted) Clear(ctx context.Context) error {
	endpoint := h.endpoint(h.cfg.Endpoints.Clear, defaultClearEndpoint)
	return h.do(ctx, http.MethodDelete, endpoint+"?scope="+url.QueryEscape(h.scope), nil, nil)
}

func (h *Hosted) endpoint(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (h *Hosted) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("provider %s: encode request: %w", h.name, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(h.cfg.URL, "/")+endpoint, reader)
	if err != nil {
		return fmt.Errorf("provider %s: build request: %w", h.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	h.applyAuth(req)
	for k, v := range h.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s: %s %s: %w", h.name, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider %s: %s %s: status %d: %s",
			h.name, method, endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("provider %s: decode response: %w", h.name, err)
	}
	return nil
}

func (h *Hosted) applyAuth(req *http.Request) {
	if h.cfg.AuthEnv == "" {
		return
	}
	token := os.Getenv(h.cfg.AuthEnv)
	if token == "" {
		h.log.Warn("auth env var is empty", zap.String("provider", h.name), zap.String("env", h.cfg.AuthEnv))
		return
	}
	if h.cfg.AuthStyle == "header" {
		req.Header.Set("X-API-Key", token)
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
