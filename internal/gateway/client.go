// Package gateway centralizes every call to the payment REST API. Failures
// never cross this boundary as errors: they become a nil result plus a notice
// on the caller's Notifier.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/metrics"
)

const maxResponseBytes = 10 << 20

// MalformedResponseMessage is surfaced when a 2xx response is not a valid envelope
const MalformedResponseMessage = "Malformed response from server"

// Config holds gateway configuration
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// TokenInvalidHandler is invoked when the API reports that an access token is
// no longer valid
type TokenInvalidHandler func(ctx context.Context, token string)

// File is one file handed off as a multipart part
type File struct {
	Field    string
	FileName string
	Path     string
}

// Call describes one outbound request
type Call struct {
	// Endpoint is a stable label used for metrics and logs
	Endpoint string
	Method   string
	// Path is relative to the base URL unless it is an absolute URL
	Path  string
	Query url.Values
	Body  interface{}
	// Files switches the body to multipart/form-data with Body encoded as
	// the "payload" field
	Files []File
	Token string
}

// Client performs calls against the payment API
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger

	mu             sync.RWMutex
	onTokenInvalid TokenInvalidHandler
}

// NewClient creates a new gateway client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "payment-portal/1.0"
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// OnTokenInvalid registers the handler for token-invalid responses
func (c *Client) OnTokenInvalid(h TokenInvalidHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTokenInvalid = h
}

// Do performs the call and decodes the response envelope. It returns nil when
// the call failed for any reason; the reason has been sent to n.
func (c *Client) Do(ctx context.Context, call Call, n Notifier) *entity.Envelope {
	body, ok := c.DoRaw(ctx, call, n)
	if !ok {
		return nil
	}

	var env entity.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if IsTokenInvalid(body) {
			c.tokenInvalid(ctx, call, n)
			return nil
		}
		c.logger.Warn("Malformed envelope",
			zap.String("endpoint", call.Endpoint),
			zap.Error(err))
		metrics.RecordUpstreamCall(call.Endpoint, "malformed", 0)
		notify(n, Notice{Kind: NoticeHTTP, Message: MalformedResponseMessage})
		return nil
	}

	if !env.OK() {
		if IsTokenInvalid(body) {
			c.tokenInvalid(ctx, call, n)
			return nil
		}
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("Request failed (code %d)", env.Code)
		}
		c.logger.Info("Payment API reported failure",
			zap.String("endpoint", call.Endpoint),
			zap.Int("code", env.Code),
			zap.String("message", env.Message))
		metrics.RecordUpstreamCall(call.Endpoint, "rejected", 0)
		notify(n, Notice{Kind: NoticeHTTP, Message: msg})
		return nil
	}

	return &env
}

// DoRaw performs the call and returns the body of a 2xx response. It does not
// interpret the body, which makes it usable for endpoints outside the payment
// API such as the country list.
func (c *Client) DoRaw(ctx context.Context, call Call, n Notifier) ([]byte, bool) {
	req, err := c.newRequest(ctx, call)
	if err != nil {
		c.logger.Error("Failed to build request",
			zap.String("endpoint", call.Endpoint),
			zap.Error(err))
		notify(n, Notice{Kind: NoticeHTTP, Message: "Could not prepare request"})
		return nil, false
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		latency := time.Since(start)
		if errors.Is(ctx.Err(), context.Canceled) {
			// The page request went away; nobody is left to notify.
			c.logger.Debug("Call cancelled",
				zap.String("endpoint", call.Endpoint),
				zap.Duration("latency", latency))
			metrics.RecordUpstreamCall(call.Endpoint, "cancelled", latency)
			return nil, false
		}
		c.logger.Warn("Payment API unreachable",
			zap.String("endpoint", call.Endpoint),
			zap.String("url", req.URL.Redacted()),
			zap.Error(err))
		metrics.RecordUpstreamCall(call.Endpoint, "network_error", latency)
		notify(n, Notice{Kind: NoticeNetwork, Message: NetworkErrorMessage})
		return nil, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	latency := time.Since(start)
	if err != nil {
		c.logger.Warn("Failed to read response",
			zap.String("endpoint", call.Endpoint),
			zap.Error(err))
		metrics.RecordUpstreamCall(call.Endpoint, "network_error", latency)
		notify(n, Notice{Kind: NoticeNetwork, Message: NetworkErrorMessage})
		return nil, false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if IsTokenInvalid(body) {
			c.tokenInvalid(ctx, call, n)
			return nil, false
		}
		msg := httpErrorMessage(resp, body)
		c.logger.Info("Payment API returned error status",
			zap.String("endpoint", call.Endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", latency))
		metrics.RecordUpstreamCall(call.Endpoint, "http_"+strconv.Itoa(resp.StatusCode), latency)
		notify(n, Notice{Kind: NoticeHTTP, Message: msg})
		return nil, false
	}

	c.logger.Debug("Payment API call",
		zap.String("endpoint", call.Endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency))
	metrics.RecordUpstreamCall(call.Endpoint, "ok", latency)
	return body, true
}

func (c *Client) tokenInvalid(ctx context.Context, call Call, n Notifier) {
	c.logger.Info("Access token rejected, forcing logout", zap.String("endpoint", call.Endpoint))
	metrics.RecordUpstreamCall(call.Endpoint, "token_invalid", 0)

	c.mu.RLock()
	h := c.onTokenInvalid
	c.mu.RUnlock()
	if h != nil && call.Token != "" {
		h(ctx, call.Token)
	}
	notify(n, Notice{Kind: NoticeTokenExpired, Message: "Your session has expired. Please log in again."})
}

func (c *Client) newRequest(ctx context.Context, call Call) (*http.Request, error) {
	method := call.Method
	if method == "" {
		method = http.MethodGet
	}

	target := call.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(call.Path, "/")
	}
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case len(call.Files) > 0:
		buf, ct, err := multipartBody(call.Body, call.Files)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case call.Body != nil:
		data, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if call.Token != "" {
		req.Header.Set("Authorization", "Bearer "+call.Token)
	}
	return req, nil
}

// multipartBody encodes payload as the "payload" field followed by one part
// per file
func multipartBody(payload interface{}, files []File) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal payload: %w", err)
		}
		if err := w.WriteField("payload", string(data)); err != nil {
			return nil, "", fmt.Errorf("failed to write payload field: %w", err)
		}
	}

	for _, f := range files {
		if err := appendFile(w, f); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func appendFile(w *multipart.Writer, f File) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("failed to open attachment %s: %w", f.FileName, err)
	}
	defer src.Close()

	name := f.FileName
	if name == "" {
		name = filepath.Base(f.Path)
	}
	part, err := w.CreateFormFile(f.Field, name)
	if err != nil {
		return fmt.Errorf("failed to create part %s: %w", f.Field, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to copy attachment %s: %w", f.FileName, err)
	}
	return nil
}

// httpErrorMessage picks what to show for a non-2xx response: the envelope
// message when the body is an envelope, the body text otherwise, and the
// status text when the body is empty.
func httpErrorMessage(resp *http.Response, body []byte) string {
	var env entity.Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

// Decode unmarshals the envelope's data member into T. A malformed data member
// is surfaced like any other failure.
func Decode[T any](env *entity.Envelope, n Notifier) (T, bool) {
	var out T
	if env == nil {
		return out, false
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, true
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		notify(n, Notice{Kind: NoticeHTTP, Message: MalformedResponseMessage})
		return out, false
	}
	return out, true
}
