package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gatewayPage = `<!DOCTYPE html><html><head><title>503 Service Unavailable</title></head>
<body><h1>Service Unavailable</h1><p>upstream http://10.0.0.7:8000/analyze failed</p></body></html>`

type timeoutError struct{}

func (timeoutError) Error() string   { return "read tcp 10.0.0.1:5555->10.0.0.7:8000: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare host", "http://localhost:8000", "http://localhost:8000/analyze"},
		{"trailing slash", "http://localhost:8000/", "http://localhost:8000/analyze"},
		{"already normalized", "http://localhost:8000/analyze", "http://localhost:8000/analyze"},
		{"analyze with slash", "http://localhost:8000/analyze/", "http://localhost:8000/analyze"},
		{"prefix path", "https://ai.example.com/v1/", "https://ai.example.com/v1/analyze"},
		{"query kept", "https://ai.example.com?key=abc&region=eu", "https://ai.example.com/analyze?key=abc&region=eu"},
		{"query with slash", "https://ai.example.com/?key=abc", "https://ai.example.com/analyze?key=abc"},
		{"query on analyze", "https://ai.example.com/analyze?key=abc", "https://ai.example.com/analyze?key=abc"},
		{"fragment kept", "https://ai.example.com/api#frag", "https://ai.example.com/api/analyze#frag"},
		{"whitespace", "  http://localhost:8000  ", "http://localhost:8000/analyze"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := NormalizeURL(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "normalization must be idempotent")
		})
	}
}

func TestNormalizeURL_SlashAndQueryAgree(t *testing.T) {
	a, err := NormalizeURL("http://svc:8000?x=1")
	require.NoError(t, err)
	b, err := NormalizeURL("http://svc:8000/?x=1")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeURL_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "localhost:8000", "://missing-scheme", "/just/a/path"} {
		_, err := NormalizeURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestNewAIClient_RejectsBadConfig(t *testing.T) {
	_, err := NewAIClient(AIClientConfig{URL: testAIURL, MaxAttempts: 0})
	assert.Error(t, err)

	_, err = NewAIClient(AIClientConfig{URL: "not a url", MaxAttempts: 3})
	assert.Error(t, err)

	c, err := NewAIClient(AIClientConfig{URL: "http://ai.test/", MaxAttempts: 1, ConnectTimeout: time.Second, ReadTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "http://ai.test/analyze", c.URL())
}

func TestAnalyzeText_Success(t *testing.T) {
	client, transport, sleeps := newMockedClient(t, 3, time.Second)

	transport.RegisterResponder(http.MethodPost, testAIURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		body, _ := io.ReadAll(req.Body)
		assert.JSONEq(t, `{"text":"positive ESG news"}`, string(body))
		return httpmock.NewStringResponse(200, `{"overallAssessment":{"esgScore":72,"riskLevel":"LOW"},"analystSummary":"Strong governance."}`), nil
	})

	result, err := client.AnalyzeText(context.Background(), "positive ESG news")
	require.NoError(t, err)

	overall := result["overallAssessment"].(map[string]any)
	assert.Equal(t, json.Number("72"), overall["esgScore"])
	assert.Equal(t, "Strong governance.", result["analystSummary"])
	assert.Equal(t, 1, transport.GetTotalCallCount())
	assert.Empty(t, sleeps.delays)
}

func TestAnalyzeText_EmptyTextIsSent(t *testing.T) {
	client, transport, _ := newMockedClient(t, 1, 0)
	transport.RegisterResponder(http.MethodPost, testAIURL, func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		assert.JSONEq(t, `{"text":""}`, string(body))
		return httpmock.NewStringResponse(200, `{"ok":true}`), nil
	})

	_, err := client.AnalyzeText(context.Background(), "")
	require.NoError(t, err)
}

func TestAnalyzeText_RetryCap(t *testing.T) {
	for _, attempts := range []int{1, 2, 3, 5} {
		client, transport, sleeps := newMockedClient(t, attempts, 10*time.Millisecond)
		transport.RegisterResponder(http.MethodPost, testAIURL, httpmock.NewStringResponder(503, `{"detail":"busy"}`))

		_, err := client.AnalyzeText(context.Background(), "text")
		require.Error(t, err)

		assert.Equal(t, attempts, transport.GetTotalCallCount(), "attempts=%d", attempts)
		assert.Len(t, sleeps.delays, attempts-1)

		var ae *AnalysisError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, KindRemoteUnavailable, ae.Kind)
		assert.Equal(t, 503, ae.StatusCode)
		assert.Equal(t, attempts, ae.Attempts)
		assert.Equal(t, msgBusy, ae.Error())
		require.NotNil(t, ae.Err, "terminal error wraps the last cause")
		assert.Contains(t, ae.Err.Error(), "503")
	}
}

func TestAnalyzeText_BackoffGrowth(t *testing.T) {
	base := 100 * time.Millisecond
	client, transport, sleeps := newMockedClient(t, 4, base)
	transport.RegisterResponder(http.MethodPost, testAIURL, httpmock.NewStringResponder(502, "bad gateway"))

	_, err := client.AnalyzeText(context.Background(), "text")
	require.Error(t, err)

	assert.Equal(t, []time.Duration{base, 2 * base, 4 * base}, sleeps.delays)
	for k, want := range []time.Duration{base, 2 * base, 4 * base} {
		assert.Equal(t, want, client.BackoffDelay(k), "k=%d", k)
	}
}

func TestAnalyzeText_NoRetryOnPermanentStatus(t *testing.T) {
	for _, status := range []int{400, 401, 404, 422, 500, 501} {
		client, transport, sleeps := newMockedClient(t, 3, time.Second)
		transport.RegisterResponder(http.MethodPost, testAIURL, httpmock.NewStringResponder(status, `{"detail":"nope"}`))

		_, err := client.AnalyzeText(context.Background(), "text")
		require.Error(t, err)

		assert.Equal(t, 1, transport.GetTotalCallCount(), "status=%d", status)
		assert.Empty(t, sleeps.delays)
		assert.Equal(t, KindRemotePermanent, KindOf(err))
	}
}

func TestAnalyzeText_StatusMessages(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   ErrorKind
		want   string
	}{
		{503, gatewayPage, KindRemoteUnavailable, msgBusyHTML},
		{502, "<html><body>Bad Gateway</body></html>", KindRemoteUnavailable, msgUnavailable},
		{504, "  <!doctype html><p>timeout</p>", KindRemoteTimeout, msgGatewayHTML},
		{504, `{"detail":"timeout"}`, KindRemoteTimeout, msgGateway},
		{500, `{"detail":"Traceback ..."}`, KindRemotePermanent, msgInternal},
		{500, "<div><html>oops</html></div>", KindRemotePermanent, msgErrorHTML},
		{418, "teapot", KindRemotePermanent, msgError},
	}

	for _, tt := range tests {
		client, transport, _ := newMockedClient(t, 2, 0)
		transport.RegisterResponder(http.MethodPost, testAIURL, httpmock.NewStringResponder(tt.status, tt.body))

		_, err := client.AnalyzeText(context.Background(), "text")
		require.Error(t, err)
		assert.Equal(t, tt.kind, KindOf(err), "status=%d", tt.status)
		assert.Equal(t, tt.want, err.Error(), "status=%d", tt.status)
		assert.NotContains(t, err.Error(), "<")
		assert.NotContains(t, err.Error(), "http://")
	}
}

func TestAnalyzeText_RecoversAfterTransientFailure(t *testing.T) {
	client, transport, sleeps := newMockedClient(t, 3, time.Second)

	calls := 0
	transport.RegisterResponder(http.MethodPost, testAIURL, func(*http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return httpmock.NewStringResponse(504, gatewayPage), nil
		}
		return httpmock.NewStringResponse(200, `{"overallAssessment":{"esgScore":55,"riskLevel":"MEDIUM"}}`), nil
	})

	result, err := client.AnalyzeText(context.Background(), "text")
	require.NoError(t, err)
	assert.Contains(t, result, "overallAssessment")
	assert.Equal(t, 2, transport.GetTotalCallCount())
	assert.Equal(t, []time.Duration{time.Second}, sleeps.delays)
}

func TestAnalyzeText_ConnectionErrors(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name string
		err  error
		kind ErrorKind
		want string
	}{
		{"refused", refused, KindRemoteUnavailable, msgConnRefused},
		{"net timeout", timeoutError{}, KindRemoteTimeout, msgConnTimeout},
		{"timed out text", errors.New("Read timed out"), KindRemoteTimeout, msgConnTimeout},
		{"unable to connect text", errors.New("Unable to connect to host"), KindRemoteUnavailable, msgConnRefused},
		{"dns", errors.New("dial tcp: lookup ai.test: no such host"), KindRemoteUnavailable, msgConnGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport, sleeps := newMockedClient(t, 3, time.Millisecond)
			transport.RegisterResponder(http.MethodPost, testAIURL, httpmock.NewErrorResponder(tt.err))

			_, err := client.AnalyzeText(context.Background(), "text")
			require.Error(t, err)

			assert.Equal(t, 3, transport.GetTotalCallCount(), "connection errors are retried")
			assert.Len(t, sleeps.delays, 2)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.want, err.Error())
			assert.NotContains(t, err.Error(), "ai.test")
		})
	}
}

func TestAnalyzeText_TerminalErrorWrapsCause(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	client, transport, _ := newMockedClient(t, 2, 0)
	transport.RegisterResponder(http.MethodPost, testAIURL, httpmock.NewErrorResponder(refused))

	_, err := client.AnalyzeText(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, syscall.ECONNREFUSED))
}

func TestAnalyzeText_MalformedBodiesAreNotRetried(t *testing.T) {
	for name, body := range map[string]string{
		"empty":      "",
		"whitespace": "   \n",
		"not json":   "<html>ok</html>",
		"array":      `[{"overallAssessment":{}}]`,
		"string":     `"hello"`,
		"null":       "null",
		"truncated":  `{"overallAssessment":{"esgScore":5`,
		"trailing":   `{"a":1} {"b":2}`,
	} {
		t.Run(name, func(t *testing.T) {
			client, transport, _ := newMockedClient(t, 3, time.Second)
			transport.RegisterResponder(http.MethodPost, testAIURL, httpmock.NewStringResponder(200, body))

			_, err := client.AnalyzeText(context.Background(), "text")
			require.Error(t, err)
			assert.Equal(t, KindMalformedResponse, KindOf(err))
			assert.Equal(t, msgMalformed, err.Error())
			assert.Equal(t, 1, transport.GetTotalCallCount())
		})
	}
}

func TestAnalyzeText_CancelledDuringBackoff(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, testAIURL, httpmock.NewStringResponder(503, "busy"))

	ctx, cancel := context.WithCancel(context.Background())
	client, err := NewAIClient(AIClientConfig{URL: testAIURL, MaxAttempts: 5, RetryBaseDelay: time.Hour},
		WithHTTPClient(&http.Client{Transport: transport}),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel()
			return sleepContext(ctx, d)
		}))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := client.AnalyzeText(ctx, "text")
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, KindRemoteUnavailable, KindOf(err))
		assert.Equal(t, 1, transport.GetTotalCallCount())
	case <-time.After(5 * time.Second):
		t.Fatal("backoff sleep was not interrupted by cancellation")
	}
}

func TestCheckHealth(t *testing.T) {
	client, transport, _ := newMockedClient(t, 3, 0)
	transport.RegisterResponder(http.MethodGet, "http://ai.test/health", httpmock.NewStringResponder(200, `{"status":"ok"}`))
	assert.NoError(t, client.CheckHealth(context.Background()))

	transport.RegisterResponder(http.MethodGet, "http://ai.test/health", httpmock.NewStringResponder(503, "down"))
	err := client.CheckHealth(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindRemoteUnavailable, KindOf(err))
	assert.Equal(t, 2, transport.GetTotalCallCount())
}

// Open question: outbound calls are neither rate limited nor concurrency
// capped. Every caller reaches the AI service at the same time. This test
// records the current behaviour so that adding backpressure is a visible
// change.
func TestAnalyzeText_NoOutboundConcurrencyCap(t *testing.T) {
	const callers = 5

	var inflight, peak int32
	release := make(chan struct{})
	var once sync.Once

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		if n == callers {
			once.Do(func() { close(release) })
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		atomic.AddInt32(&inflight, -1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"overallAssessment":{"esgScore":50,"riskLevel":"MEDIUM"}}`))
	}))
	defer srv.Close()

	client, err := NewAIClient(AIClientConfig{
		URL:            srv.URL,
		ConnectTimeout: time.Second,
		ReadTimeout:    5 * time.Second,
		MaxAttempts:    1,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.AnalyzeText(context.Background(), "text")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, callers, atomic.LoadInt32(&peak))
}
