// Package anthropic sends serialized tyrell requests to the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haowjy/tyrell-go"
)

const messagesPath = "v1/messages"

// Transport implements tyrell.Transport over the SDK's HTTP client.
// The request body is sent exactly as encoded by tyrell; the SDK contributes
// auth headers, the anthropic-version header and connection handling.
type Transport struct {
	client *anthropic.Client
}

// NewTransport creates a transport from cfg. Extra SDK options (for example
// option.WithHTTPClient) are applied after the ones derived from cfg.
func NewTransport(cfg Config, opts ...option.RequestOption) (*Transport, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key is empty", tyrell.ErrInvalidAPIKey)
	}

	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Version != "" {
		base = append(base, option.WithHeader("anthropic-version", cfg.Version))
	}
	if cfg.Timeout > 0 {
		base = append(base, option.WithRequestTimeout(cfg.Timeout))
	}

	client := anthropic.NewClient(append(base, opts...)...)
	return &Transport{client: &client}, nil
}

// NewTransportFromEnv is NewTransport(LoadConfig()).
func NewTransportFromEnv(opts ...option.RequestOption) (*Transport, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewTransport(cfg, opts...)
}

// Name returns the transport identifier.
func (t *Transport) Name() tyrell.TransportID {
	return tyrell.TransportAnthropic
}

// Send posts body to /v1/messages and returns the raw 2xx response body.
func (t *Transport) Send(ctx context.Context, body []byte) ([]byte, error) {
	var (
		out      []byte
		httpResp *http.Response
	)
	err := t.client.Post(ctx, messagesPath, nil, &out,
		option.WithRequestBody("application/json", body),
		option.WithResponseInto(&httpResp),
	)
	if err != nil {
		return nil, t.convertError(err, httpResp)
	}
	return out, nil
}

// convertError maps SDK failures onto tyrell.TransportError.
func (t *Transport) convertError(err error, httpResp *http.Response) error {
	name := t.Name().String()

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return tyrell.NewStatusError(name, apiErr.StatusCode, apiErr.RawJSON())
	}

	// Error bodies that are not JSON fail the SDK's decoding, but the
	// response is still captured with its body re-populated.
	if httpResp != nil && httpResp.StatusCode >= 400 {
		var body []byte
		if httpResp.Body != nil {
			body, _ = io.ReadAll(httpResp.Body)
		}
		return tyrell.NewStatusError(name, httpResp.StatusCode, string(body))
	}

	return tyrell.NewNetworkError(name, err)
}
