package dart

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"

	"github.com/seenimoa/krfin/internal/fallback"
	"github.com/seenimoa/krfin/internal/provider"
)

// OpenDART status codes.
const (
	statusOK     = "000"
	statusNoData = "013"
)

// StatusError is a non-success status reported in an OpenDART response body.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("opendart status %s: %s", e.Status, e.Message)
}

// KeyRelated reports whether another key might be accepted where this one was not.
func (e *StatusError) KeyRelated() bool {
	switch e.Status {
	case "010", "011", "012", "020", "901":
		return true
	}
	return false
}

// envelope is the status header shared by every OpenDART JSON response.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// xmlEnvelope is the error document corpCode.xml returns instead of a zip.
type xmlEnvelope struct {
	Status  string `xml:"status"`
	Message string `xml:"message"`
}

// checkStatus maps an OpenDART status to an error. No-data is not an error.
// Malformed requests and over-broad queries fail the same way on every key,
// so they stop the rotation.
func checkStatus(status, message string) error {
	switch status {
	case statusOK, statusNoData:
		return nil
	case "100", "101", "021":
		return fallback.Terminal(&StatusError{Status: status, Message: message})
	}
	return &StatusError{Status: status, Message: message}
}

func keyLabel(i int) string {
	return fmt.Sprintf("key%d", i+1)
}

// withKeys runs fn once per configured key, in order, until one succeeds.
// It returns the body and the label of the key that produced it.
func (p *Provider) withKeys(ctx context.Context, name string, fn func(ctx context.Context, key string) ([]byte, error)) ([]byte, string, error) {
	if len(p.keys) == 0 {
		return nil, "", &provider.ErrInvalidCredentials{Provider: providerName, Detail: "no API key configured"}
	}

	attempts := make([]fallback.Attempt[[]byte], 0, len(p.keys))
	for i, key := range p.keys {
		attempts = append(attempts, fallback.Attempt[[]byte]{
			Variant: keyLabel(i),
			Run: func(ctx context.Context) ([]byte, error) {
				body, err := fn(ctx, key)
				var se *StatusError
				if errors.As(err, &se) && se.KeyRelated() {
					p.logger.Warn().Str("endpoint", name).Str("key", keyLabel(i)).Str("status", se.Status).Msg("opendart rejected API key")
				}
				return body, err
			},
		})
	}

	out := fallback.Run(ctx, attempts, nil, fallback.WithName("dart "+name), fallback.WithLogger(p.logger))
	switch out.Status {
	case fallback.StatusSuccess:
		if out.VariantUsed != keyLabel(0) {
			p.logger.Info().Str("endpoint", name).Str("key", out.VariantUsed).Msg("opendart request served by fallback key")
		}
		return out.Value, out.VariantUsed, nil
	case fallback.StatusRejected:
		return nil, "", out.Err
	}

	last := ""
	if n := len(out.Attempts); n > 0 {
		last = out.Attempts[n-1].Error
	}
	return nil, "", &provider.UpstreamError{
		Provider: providerName,
		Detail:   fmt.Sprintf("%s: all %d API keys failed: %s", name, len(p.keys), last),
	}
}

// getJSON issues a GET against an OpenDART JSON endpoint with key rotation.
// The body is returned only when the status is success or no-data.
func (p *Provider) getJSON(ctx context.Context, path string, params map[string]string) ([]byte, string, error) {
	return p.withKeys(ctx, path, func(ctx context.Context, key string) ([]byte, error) {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		q.Set("crtfc_key", key)

		body, err := p.client.Get(ctx, p.baseURL+path+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("parse opendart response: %w", err)
		}
		if err := checkStatus(env.Status, env.Message); err != nil {
			return nil, err
		}
		return body, nil
	})
}

// getArchive downloads a zip endpoint such as corpCode.xml with key rotation.
func (p *Provider) getArchive(ctx context.Context, path string) ([]byte, string, error) {
	return p.withKeys(ctx, path, func(ctx context.Context, key string) ([]byte, error) {
		q := url.Values{"crtfc_key": {key}}
		body, err := p.client.Get(ctx, p.baseURL+path+"?"+q.Encode(), map[string]string{"Accept": "*/*"})
		if err != nil {
			return nil, err
		}
		if bytes.HasPrefix(body, []byte("PK")) {
			return body, nil
		}

		var env xmlEnvelope
		if xerr := xml.Unmarshal(body, &env); xerr != nil || env.Status == "" {
			var jenv envelope
			if jerr := json.Unmarshal(body, &jenv); jerr != nil || jenv.Status == "" {
				return nil, fmt.Errorf("opendart %s: unexpected response", path)
			}
			env = xmlEnvelope(jenv)
		}
		if err := checkStatus(env.Status, env.Message); err != nil {
			return nil, err
		}
		return nil, &StatusError{Status: env.Status, Message: "no archive in response"}
	})
}
