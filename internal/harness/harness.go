// Package harness issues a single HTTP request against a running server and
// checks the response against an exact expectation.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/leslieo2/go-hello/internal/constants"
	"github.com/leslieo2/go-hello/internal/contract"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single run when no other deadline applies
	DefaultTimeout = 5 * time.Second
	// maxBodyBytes caps how much of a response body is read
	maxBodyBytes = 1 << 20
)

// Error kinds. Every failed run wraps exactly one of them.
var (
	ErrConnection = errors.New("connection failure")
	ErrTimeout    = errors.New("timeout")
	ErrMismatch   = errors.New("assertion mismatch")
)

// Expectation describes one request and the exact response it must produce.
type Expectation struct {
	Method string
	Path   string
	Status int
	Body   string
}

// RootGet is the canonical check: GET / answers 200 with "Hello World\n".
func RootGet() Expectation {
	return Expectation{
		Method: http.MethodGet,
		Path:   constants.PathRoot,
		Status: http.StatusOK,
		Body:   constants.DefaultGreeting,
	}
}

// Response is what the server actually sent.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	// Truncated is set when the server sent more than the harness reads.
	Truncated bool
}

// Result is the outcome of a completed run.
type Result struct {
	Passed   bool
	Expected Expectation
	Actual   *Response
	Message  string
	Diff     string
}

type Harness struct {
	baseURL  string
	client   *http.Client
	timeout  time.Duration
	contract *contract.Contract
	logger   *zap.Logger
}

type Option func(*Harness)

// WithClient replaces the default client, e.g. with httptest.Server.Client().
func WithClient(client *http.Client) Option {
	return func(h *Harness) {
		h.client = client
	}
}

func WithTimeout(d time.Duration) Option {
	return func(h *Harness) {
		h.timeout = d
	}
}

// WithContract additionally validates every response against c.
func WithContract(c *contract.Contract) Option {
	return func(h *Harness) {
		h.contract = c
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

func New(baseURL string, opts ...Option) *Harness {
	h := &Harness{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = &http.Client{
			// A redirect is an answer in its own right.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return h
}

// RunRootGet runs RootGet against the server.
func (h *Harness) RunRootGet(ctx context.Context) (*Result, error) {
	return h.Run(ctx, RootGet())
}

// Run sends exactly one request and blocks until the response is read or the
// run fails. Transport failures return a nil Result and an error wrapping
// ErrConnection or ErrTimeout. A completed exchange always returns a Result;
// when it did not pass the error wraps ErrMismatch.
func (h *Harness) Run(ctx context.Context, exp Expectation) (*Result, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, exp.Method, h.baseURL+exp.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	actual, err := h.do(req)
	if err != nil {
		h.logger.Warn("Request failed",
			zap.String("method", exp.Method),
			zap.String("url", req.URL.String()),
			zap.Error(err),
		)
		return nil, err
	}

	result := Compare(exp, actual)
	if result.Passed && h.contract != nil {
		if err := h.contract.ValidateResponse(ctx, req, actual.StatusCode, actual.Header, actual.Body); err != nil {
			result.Passed = false
			result.Message = fmt.Sprintf("contract violation: %v", err)
		}
	}

	h.logger.Debug("Check completed",
		zap.String("method", exp.Method),
		zap.String("path", exp.Path),
		zap.Int("status_code", actual.StatusCode),
		zap.Bool("passed", result.Passed),
		zap.Duration("duration", actual.Duration),
	)

	if !result.Passed {
		return result, fmt.Errorf("%w: %s", ErrMismatch, result.Message)
	}
	return result, nil
}

func (h *Harness) do(req *http.Request) (*Response, error) {
	start := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, classify(err)
	}
	truncated := len(body) > maxBodyBytes
	if truncated {
		body = body[:maxBodyBytes]
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
		Truncated:  truncated,
	}, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}
