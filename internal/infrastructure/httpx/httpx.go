package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

type Client struct {
	HTTP *http.Client
	// MaxElapsed bounds the retry window for 5xx and transport errors.
	// Zero sends each request exactly once.
	MaxElapsed time.Duration
}

// GetJSON issues a GET to rawURL and returns the body, which must be valid JSON.
func (c *Client) GetJSON(ctx context.Context, rawURL string) (json.RawMessage, error) {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	var out json.RawMessage
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(redact(err))
		}
		req.Header.Set("Accept", "application/json")
		resp, err := hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(redact(err))
			}
			return redact(err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return &StatusError{Code: resp.StatusCode, Body: clip(body)}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return backoff.Permanent(&StatusError{Code: resp.StatusCode, Body: clip(body)})
		}
		if !json.Valid(body) {
			return backoff.Permanent(fmt.Errorf("decode: invalid json body (%d bytes)", len(body)))
		}
		out = body
		return nil
	}

	if c.MaxElapsed <= 0 {
		err := op()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return out, err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = c.MaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(exp, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// redact drops the query string from a *url.Error. Request URLs carry
// credentials in the query, and transport errors end up in responses.
func redact(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	target := "request"
	if u, perr := url.Parse(ue.URL); perr == nil {
		u.RawQuery, u.Fragment, u.User = "", "", nil
		target = u.String()
	}
	return fmt.Errorf("%s %s: %w", ue.Op, target, ue.Err)
}

func clip(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}
