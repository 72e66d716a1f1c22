package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"marketdata-service/internal/application"
	"marketdata-service/internal/infrastructure/httpx"
)

// Finnhub fetches raw JSON from the Finnhub REST API.
type Finnhub struct {
	BaseURL string
	APIKey  string
	Client  *httpx.Client
}

var _ application.Upstream = (*Finnhub)(nil)

func (p *Finnhub) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return nil, errors.New("finnhub: missing configuration")
	}

	u, err := url.Parse(strings.TrimRight(p.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("finnhub: invalid base url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("token", p.APIKey)
	u.RawQuery = q.Encode()

	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}
	body, err := client.GetJSON(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("finnhub: %s: %w", endpoint, err)
	}
	if msg, ok := apiError(body); ok {
		return nil, fmt.Errorf("finnhub: %s: %s", endpoint, msg)
	}
	return body, nil
}

// apiError detects the {"error": "..."} body Finnhub sends for rejected
// requests that still come back with a 2xx status.
func apiError(body json.RawMessage) (string, bool) {
	var e struct {
		Error *string `json:"error"`
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error == nil {
		return "", false
	}
	return *e.Error, true
}
