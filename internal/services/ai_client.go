package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/pulseesg/backend/internal/config"
	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/metrics"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	analyzePath = "/analyze"
	healthPath  = "/health"

	// Large enough for a full rich analysis, small enough to bound memory.
	maxResponseBytes = 8 << 20
)

// RemoteAnalyzer turns free text into the raw analysis payload.
type RemoteAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (map[string]any, error)
}

// AIClientConfig is fixed at construction and never mutated.
type AIClientConfig struct {
	URL            string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// AIClientConfigFrom maps the environment settings onto the client config.
func AIClientConfigFrom(c config.AIConfig) AIClientConfig {
	return AIClientConfig{
		URL:            c.URL,
		ConnectTimeout: c.ConnectTimeout,
		ReadTimeout:    c.ReadTimeout,
		MaxAttempts:    c.MaxAttempts,
		RetryBaseDelay: c.RetryBaseDelay,
	}
}

// AIClient posts text to the remote analysis service, retrying gateway and
// connection failures with exponential backoff.
type AIClient struct {
	url        string
	healthURL  string
	cfg        AIClientConfig
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	metrics    *metrics.Metrics
}

type AIClientOption func(*AIClient)

// WithHTTPClient replaces the default transport-configured client.
func WithHTTPClient(hc *http.Client) AIClientOption {
	return func(c *AIClient) { c.httpClient = hc }
}

// WithSleeper replaces the backoff wait.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) AIClientOption {
	return func(c *AIClient) { c.sleep = fn }
}

func WithClientMetrics(m *metrics.Metrics) AIClientOption {
	return func(c *AIClient) { c.metrics = m }
}

// NewAIClient validates cfg and normalizes the target URL.
func NewAIClient(cfg AIClientConfig, opts ...AIClientOption) (*AIClient, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, eris.Errorf("ai client: max attempts must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryBaseDelay < 0 {
		return nil, eris.New("ai client: retry base delay must not be negative")
	}

	target, err := NormalizeURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	cfg.URL = target

	c := &AIClient{
		url:       target,
		healthURL: healthURLFor(target),
		cfg:       cfg,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(cfg)
	}

	logger.WithAIClient("init").WithFields(logrus.Fields{
		"url":             c.url,
		"connect_timeout": cfg.ConnectTimeout.String(),
		"read_timeout":    cfg.ReadTimeout.String(),
		"max_attempts":    cfg.MaxAttempts,
	}).Info("AI client configured")
	return c, nil
}

func newHTTPClient(cfg AIClientConfig) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
	}
}

// NormalizeURL makes raw point at the analysis endpoint. Trailing slashes are
// dropped, /analyze is appended unless already present, and the query string
// and fragment are kept. Applying it twice yields the same URL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("ai client: service URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrap(err, "ai client: invalid service URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", eris.Errorf("ai client: service URL %q needs a scheme and host", raw)
	}

	path := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(path, analyzePath) {
		path += analyzePath
	}
	u.Path = path
	u.RawPath = ""
	return u.String(), nil
}

func healthURLFor(analyzeURL string) string {
	u, err := url.Parse(analyzeURL)
	if err != nil {
		return analyzeURL
	}
	u.Path = strings.TrimSuffix(u.Path, analyzePath) + healthPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// URL returns the normalized analysis endpoint.
func (c *AIClient) URL() string {
	return c.url
}

// BackoffDelay is the wait before retrying after attempt (0-indexed).
func (c *AIClient) BackoffDelay(attempt int) time.Duration {
	return time.Duration(float64(c.cfg.RetryBaseDelay) * math.Pow(2, float64(attempt)))
}

// AnalyzeText sends text and returns the decoded JSON object. At most
// MaxAttempts requests are made. Only 502/503/504 and connection-level
// failures are retried; a cancelled ctx stops further attempts.
func (c *AIClient) AnalyzeText(ctx context.Context, text string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, eris.Wrap(err, "ai client: encode request")
	}

	log := logger.WithAIClient("analyze")
	start := time.Now()

	var last *AnalysisError
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		log.WithFields(logrus.Fields{
			"attempt":      attempt + 1,
			"max_attempts": c.cfg.MaxAttempts,
			"text_length":  len(text),
		}).Debug("Posting to AI service")

		result, aerr := c.do(ctx, body)
		if aerr == nil {
			c.metrics.RecordAIAttempt(metrics.ResultOK)
			c.metrics.RecordAIRequest(metrics.OutcomeSuccess, time.Since(start).Seconds())
			log.WithField("attempt", attempt+1).Debug("AI service responded successfully")
			return result, nil
		}

		aerr.Attempts = attempt + 1
		last = aerr
		c.metrics.RecordAIAttempt(attemptResult(aerr.Kind))

		log.WithFields(logrus.Fields{
			"attempt":     attempt + 1,
			"kind":        aerr.Kind,
			"status_code": aerr.StatusCode,
			"cause":       errString(aerr.Err),
		}).Warn("AI service call failed")

		if !aerr.Kind.Transient() || attempt == c.cfg.MaxAttempts-1 || ctx.Err() != nil {
			break
		}

		delay := c.BackoffDelay(attempt)
		log.WithField("delay", delay.String()).Info("Retrying AI service call")
		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}

	c.metrics.RecordAIRequest(outcomeLabel(last.Kind), time.Since(start).Seconds())
	log.WithFields(logrus.Fields{
		"attempts": last.Attempts,
		"kind":     last.Kind,
	}).Error("AI service call gave up")
	return nil, last
}

// do performs a single round trip.
func (c *AIClient) do(ctx context.Context, body []byte) (map[string]any, *AnalysisError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &AnalysisError{Kind: KindRemotePermanent, Message: msgError, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, connectionError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, connectionError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, raw)
	}

	result, err := decodeObject(raw)
	if err != nil {
		return nil, &AnalysisError{
			Kind:       KindMalformedResponse,
			StatusCode: resp.StatusCode,
			Message:    msgMalformed,
			Err:        err,
		}
	}
	return result, nil
}

// CheckHealth probes GET /health next to the analysis endpoint once, without
// retries.
func (c *AIClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return eris.Wrap(err, "ai client: build health request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return connectionError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, nil)
	}
	return nil
}

var (
	errEmptyBody    = errors.New("empty response body")
	errNotAnObject  = errors.New("response body is not a JSON object")
	errTrailingData = errors.New("unexpected data after JSON value")
)

// decodeObject keeps numbers as json.Number so integer scores are checked
// exactly by the validator.
func decodeObject(raw []byte) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotAnObject
	}
	return obj, nil
}

func statusError(status int, body []byte) *AnalysisError {
	kind := KindRemotePermanent
	switch status {
	case http.StatusGatewayTimeout:
		kind = KindRemoteTimeout
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		kind = KindRemoteUnavailable
	}
	return &AnalysisError{
		Kind:       kind,
		StatusCode: status,
		Message:    statusMessage(status, looksLikeHTML(body)),
		Err:        fmt.Errorf("ai service responded with status %d", status),
	}
}

func connectionError(err error) *AnalysisError {
	switch {
	case isTimeout(err):
		return &AnalysisError{Kind: KindRemoteTimeout, Message: msgConnTimeout, Err: err}
	case isRefused(err):
		return &AnalysisError{Kind: KindRemoteUnavailable, Message: msgConnRefused, Err: err}
	default:
		return &AnalysisError{Kind: KindRemoteUnavailable, Message: msgConnGeneric, Err: err}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out")
}

func isRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "unable to connect")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func attemptResult(kind ErrorKind) string {
	switch kind {
	case KindRemoteTimeout, KindRemoteUnavailable:
		return metrics.ResultTransient
	case KindMalformedResponse:
		return metrics.ResultMalformed
	default:
		return metrics.ResultPermanent
	}
}

func outcomeLabel(kind ErrorKind) string {
	switch kind {
	case KindRemoteTimeout:
		return "timeout"
	case KindRemoteUnavailable:
		return "unavailable"
	case KindMalformedResponse:
		return "malformed"
	default:
		return "permanent"
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
