package tyrell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// Transport moves one serialized request to the API and returns the raw response body.
//
// Implementations return *TransportError for failures: ErrNetwork when no
// response arrived, ErrHTTPStatus with status and body for a non-2xx answer.
// A Transport never retries on its own.
type Transport interface {
	// Send posts body and returns the 2xx response body.
	Send(ctx context.Context, body []byte) ([]byte, error)

	// Name returns the transport identifier (e.g., "anthropic", "lorem")
	Name() TransportID
}

// Client pairs a Transport with request encoding and response decoding.
// A Client is safe for concurrent use if its Transport is.
type Client struct {
	transport  Transport
	logger     *log.Logger
	metrics    *Metrics
	validation *ValidationEngine
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for validation warnings and call failures.
// The default discards output.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records every call into m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithValidationEngine replaces the global validation engine.
func WithValidationEngine(ve *ValidationEngine) ClientOption {
	return func(c *Client) {
		c.validation = ve
	}
}

// NewClient creates a client around transport.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.validation == nil {
		c.validation = GetValidationEngine()
	}
	return c
}

// Transport returns the underlying transport.
func (c *Client) Transport() Transport {
	return c.transport
}

// Call sends one request and decodes the response.
// Validation warnings are logged and never block the call.
func (c *Client) Call(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, &ValidationError{Field: "request", Reason: "request is nil", Err: ErrInvalidRequest}
	}

	for _, w := range c.validation.Validate(req) {
		c.logger.Printf("[%s] %s %s: %s", w.Severity, w.Code, w.Field, w.Message)
	}

	start := time.Now()
	resp, err := c.call(ctx, req)
	if c.metrics != nil {
		var usage *Usage
		if resp != nil {
			usage = &resp.Usage
		}
		c.metrics.ObserveCall(c.transport.Name(), req.Model(), err, usage, time.Since(start))
	}
	if err != nil {
		c.logger.Printf("%s call to %s failed: %v", c.transport.Name(), req.Model(), err)
		return nil, err
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	raw, err := c.transport.Send(ctx, body)
	if err != nil {
		return nil, err
	}

	return ParseResponse(raw)
}

// Result is the outcome of one request in a CallAll batch.
type Result struct {
	Response *Response
	Err      error
}

// CallAll issues every request concurrently and waits for all of them.
// results[i] belongs to reqs[i]; one failure does not cancel the others.
func (c *Client) CallAll(ctx context.Context, reqs []*Request) []Result {
	results := make([]Result, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Call(ctx, req)
			results[i] = Result{Response: resp, Err: err}
		}()
	}
	wg.Wait()

	return results
}
