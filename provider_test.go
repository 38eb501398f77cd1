package tyrell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/gjson"
)

// fakeTransport records request bodies and answers through respond.
type fakeTransport struct {
	mu      sync.Mutex
	bodies  []string
	respond func(body []byte) ([]byte, error)
}

func (f *fakeTransport) Send(_ context.Context, body []byte) ([]byte, error) {
	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()
	return f.respond(body)
}

func (f *fakeTransport) Name() TransportID { return TransportLorem }

func textResponse(text string) []byte {
	quoted, _ := json.Marshal(text)
	return fmt.Appendf(nil, `{"id":"msg_fake","type":"message","role":"assistant","model":"claude-3-5-sonnet-20240620",`+
		`"content":[{"type":"text","text":%s}],"stop_reason":"end_turn","stop_sequence":null,`+
		`"usage":{"input_tokens":10,"output_tokens":5}}`, quoted)
}

func newTestClient(t *testing.T, transport Transport, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithValidationEngine(NewValidationEngine(testRegistry(t)))}, opts...)
	return NewClient(transport, opts...)
}

func TestClient_Call(t *testing.T) {
	transport := &fakeTransport{respond: func([]byte) ([]byte, error) {
		return []byte(superBowlResponse), nil
	}}
	client := newTestClient(t, transport)

	req := mustBuild(t, minimalBuilder().Tools(MustNewTool[SuperBowl]()).ToolChoice(AnyToolChoice()))
	resp, err := client.Call(context.Background(), req)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if len(transport.bodies) != 1 {
		t.Fatalf("transport received %d requests, want 1", len(transport.bodies))
	}
	if want := mustMarshal(t, req); transport.bodies[0] != want {
		t.Errorf("request body =\n%s\nwant\n%s", transport.bodies[0], want)
	}

	game, err := ExtractTool[SuperBowl](resp)
	if err != nil {
		t.Fatalf("ExtractTool() error = %v", err)
	}
	if game.Winner != "Green Bay Packers" {
		t.Errorf("Winner = %q, want %q", game.Winner, "Green Bay Packers")
	}
}

func TestClient_CallErrors(t *testing.T) {
	tests := []struct {
		name    string
		respond func([]byte) ([]byte, error)
		wantErr error
	}{
		{
			name: "status error passes through",
			respond: func([]byte) ([]byte, error) {
				return nil, NewStatusError("fake", 429, `{"type":"error","error":{"type":"rate_limit_error"}}`)
			},
			wantErr: ErrRateLimited,
		},
		{
			name: "network error passes through",
			respond: func([]byte) ([]byte, error) {
				return nil, NewNetworkError("fake", errors.New("connection reset"))
			},
			wantErr: ErrNetwork,
		},
		{
			name: "unknown content block",
			respond: func([]byte) ([]byte, error) {
				return []byte(`{"id":"m","role":"assistant","model":"claude-3-5-sonnet-20240620","content":[{"type":"citation"}],"usage":{}}`), nil
			},
			wantErr: ErrUnknownContentType,
		},
		{
			name: "unknown stop reason",
			respond: func([]byte) ([]byte, error) {
				return []byte(`{"id":"m","role":"assistant","model":"claude-3-5-sonnet-20240620","content":[],"stop_reason":"paused","usage":{}}`), nil
			},
			wantErr: ErrUnknownStopReason,
		},
		{
			name: "negative usage",
			respond: func([]byte) ([]byte, error) {
				return []byte(`{"id":"m","role":"assistant","model":"claude-3-5-sonnet-20240620","content":[],"stop_reason":"end_turn","usage":{"input_tokens":-5,"output_tokens":1}}`), nil
			},
			wantErr: ErrInvalidUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeTransport{respond: tt.respond})
			resp, err := client.Call(context.Background(), mustBuild(t, minimalBuilder()))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Call() error = %v, want %v", err, tt.wantErr)
			}
			if resp != nil {
				t.Errorf("Call() response = %+v, want nil on error", resp)
			}
		})
	}
}

func TestClient_CallNilRequest(t *testing.T) {
	client := newTestClient(t, &fakeTransport{respond: func([]byte) ([]byte, error) {
		t.Error("transport called for a nil request")
		return nil, nil
	}})
	if _, err := client.Call(context.Background(), nil); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Call(nil) error = %v, want ErrInvalidRequest", err)
	}
}

func TestClient_LogsWarningsWithoutBlocking(t *testing.T) {
	var buf bytes.Buffer
	transport := &fakeTransport{respond: func([]byte) ([]byte, error) { return textResponse("ok"), nil }}
	client := newTestClient(t, transport, WithLogger(log.New(&buf, "", 0)))

	req := mustBuild(t, minimalBuilder().Temperature(1.5))
	if _, err := client.Call(context.Background(), req); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !strings.Contains(buf.String(), string(WarningCodeTemperatureOutOfRange)) {
		t.Errorf("log output = %q, want it to mention %s", buf.String(), WarningCodeTemperatureOutOfRange)
	}
	if len(transport.bodies) != 1 {
		t.Errorf("transport received %d requests, want 1", len(transport.bodies))
	}
}

func TestClient_CallAll(t *testing.T) {
	transport := &fakeTransport{respond: func(body []byte) ([]byte, error) {
		prompt := gjson.GetBytes(body, "messages.0.content.0.text").String()
		if prompt == "fail" {
			return nil, NewStatusError("fake", 500, "internal")
		}
		return textResponse("echo " + prompt), nil
	}}
	client := newTestClient(t, transport)

	prompts := []string{"a", "fail", "c", "d"}
	reqs := make([]*Request, len(prompts))
	for i, p := range prompts {
		reqs[i] = mustBuild(t, NewRequestBuilder().Model(ModelHaiku3).AddText(RoleUser, p).MaxTokens(16))
	}

	results := client.CallAll(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("CallAll() returned %d results, want %d", len(results), len(reqs))
	}
	for i, p := range prompts {
		result := results[i]
		if p == "fail" {
			if !IsRetryable(result.Err) || result.Response != nil {
				t.Errorf("results[%d] = %+v, want a retryable error", i, result)
			}
			continue
		}
		if result.Err != nil {
			t.Errorf("results[%d].Err = %v", i, result.Err)
			continue
		}
		if got := result.Response.Text(); got != "echo "+p {
			t.Errorf("results[%d].Text() = %q, want %q", i, got, "echo "+p)
		}
	}

	if got := client.CallAll(context.Background(), nil); len(got) != 0 {
		t.Errorf("CallAll(nil) = %v, want empty", got)
	}
}

// gatherValue returns the counter value, or histogram sample count, of the
// series in family name whose labels include want.
func gatherValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string)
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue series
				}
			}
			if h := metric.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	fail := false
	transport := &fakeTransport{respond: func([]byte) ([]byte, error) {
		if fail {
			return nil, NewStatusError("fake", 529, "overloaded")
		}
		return textResponse("ok"), nil
	}}
	client := newTestClient(t, transport, WithMetrics(metrics))
	req := mustBuild(t, minimalBuilder())

	for range 2 {
		if _, err := client.Call(context.Background(), req); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}
	fail = true
	if _, err := client.Call(context.Background(), req); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("Call() error = %v, want ErrProviderUnavailable", err)
	}

	model := ModelSonnet35.String()
	tests := []struct {
		name   string
		family string
		labels map[string]string
		want   float64
	}{
		{name: "successful calls", family: "tyrell_calls_total", labels: map[string]string{"model": model, "status": "ok"}, want: 2},
		{name: "overloaded calls", family: "tyrell_calls_total", labels: map[string]string{"status": "529"}, want: 1},
		{name: "latency samples", family: "tyrell_call_latency_ms", labels: map[string]string{"status": "ok"}, want: 2},
		{name: "input tokens", family: "tyrell_tokens_total", labels: map[string]string{"direction": "input"}, want: 20},
		{name: "output tokens", family: "tyrell_tokens_total", labels: map[string]string{"direction": "output"}, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gatherValue(t, reg, tt.family, tt.labels); got != tt.want {
				t.Errorf("%s%v = %v, want %v", tt.family, tt.labels, got, tt.want)
			}
		})
	}
}

func TestClient_MetricsNegativeUsage(t *testing.T) {
	reg := prometheus.NewRegistry()
	transport := &fakeTransport{respond: func([]byte) ([]byte, error) {
		return []byte(`{"id":"m","role":"assistant","model":"claude-3-5-sonnet-20240620","content":[],"stop_reason":"end_turn","usage":{"input_tokens":-5,"output_tokens":-1}}`), nil
	}}
	client := newTestClient(t, transport, WithMetrics(NewMetrics(reg)))

	if _, err := client.Call(context.Background(), mustBuild(t, minimalBuilder())); !IsDecodeError(err) {
		t.Fatalf("Call() error = %v, want a decode error", err)
	}
	if got := gatherValue(t, reg, "tyrell_calls_total", map[string]string{"status": "decode"}); got != 1 {
		t.Errorf("tyrell_calls_total{status=decode} = %v, want 1", got)
	}

	// Usage built by hand bypasses decoding and must not panic the counter.
	metrics := NewMetrics(prometheus.NewRegistry())
	metrics.ObserveCall(TransportLorem, ModelSonnet35, nil, &Usage{InputTokens: -5, OutputTokens: 3}, 0)
}

func TestCallStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{NewStatusError("x", 400, ""), "400"},
		{NewNetworkError("x", errors.New("eof")), "network"},
		{&DecodeError{Reason: "bad"}, "decode"},
		{errors.New("other"), "error"},
	}

	for _, tt := range tests {
		if got := callStatus(tt.err); got != tt.want {
			t.Errorf("callStatus(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
