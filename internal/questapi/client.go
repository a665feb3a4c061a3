// Package questapi is the HTTP client for the remote quest service.
package questapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abhisek/skillquest/internal/errs"
)

// DefaultTimeout bounds every request; the service itself sets none.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is kept for messages.
const maxErrorBody = 4 << 10

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// Client talks to the quest service. Calls are single-shot; a failure is
// reported, never retried.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Non-positive values keep
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit spaces requests to at most rps per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8000/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Quests lists the adventure path.
func (c *Client) Quests(ctx context.Context) ([]Quest, error) {
	var out []Quest
	err := c.do(ctx, "list quests", http.MethodGet, "/quests/adventure_path/", nil, &out, "adventure path", "")
	return out, err
}

// Modules lists a quest's modules.
func (c *Client) Modules(ctx context.Context, questID int) ([]Module, error) {
	var out []Module
	err := c.do(ctx, "list modules", http.MethodGet, questPath(questID, "modules"), nil, &out, "quest", strconv.Itoa(questID))
	return out, err
}

// CompleteModule marks a module complete and returns the updated modules.
func (c *Client) CompleteModule(ctx context.Context, questID, index int) ([]Module, error) {
	var out []Module
	err := c.do(ctx, "complete module", http.MethodPost, questPath(questID, "complete_module"),
		completeModuleRequest{Index: index}, &out, "module", fmt.Sprintf("%d/%d", questID, index))
	return out, err
}

// Assessment fetches a quest's course assessment.
func (c *Client) Assessment(ctx context.Context, questID int) (Assessment, error) {
	var out Assessment
	err := c.do(ctx, "get assessment", http.MethodGet, questPath(questID, "assessment"), nil, &out, "quest", strconv.Itoa(questID))
	return out, err
}

// SubmitAssessment grades answers to a course assessment.
func (c *Client) SubmitAssessment(ctx context.Context, questID int, answers []int) (Result, error) {
	var out Result
	err := c.do(ctx, "submit assessment", http.MethodPost, questPath(questID, "submit_assessment"),
		answersRequest{Answers: answers}, &out, "quest", strconv.Itoa(questID))
	return out, err
}

// Final fetches the cross-course final assessment.
func (c *Client) Final(ctx context.Context) (Assessment, error) {
	var out Assessment
	err := c.do(ctx, "get final", http.MethodGet, "/final/", nil, &out, "final assessment", "")
	return out, err
}

// SubmitFinal grades answers to the final assessment.
func (c *Client) SubmitFinal(ctx context.Context, answers []int) (Result, error) {
	var out Result
	err := c.do(ctx, "submit final", http.MethodPost, "/final/", answersRequest{Answers: answers}, &out, "final assessment", "")
	return out, err
}

// Certificate downloads the final certificate PDF.
func (c *Client) Certificate(ctx context.Context) ([]byte, error) {
	var out []byte
	err := c.do(ctx, "download certificate", http.MethodGet, "/final/certificate/", nil, &out, "certificate", "final")
	return out, err
}

func questPath(id int, action string) string {
	return fmt.Sprintf("/quests/%d/%s/", id, action)
}

// do performs one request. out is either *[]byte for a raw body or a value
// to JSON-decode into. kind and id name the resource for a 404.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any, kind, id string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &errs.RemoteSyncError{Op: op, Err: err}
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &errs.RemoteSyncError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &errs.RemoteSyncError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, application/pdf")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("quest api request failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return &errs.RemoteSyncError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("quest api request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		return &errs.NotFoundError{Kind: kind, ID: id}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &errs.RemoteSyncError{Op: op, Err: &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}}
	}

	if raw, ok := out.(*[]byte); ok {
		*raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return &errs.RemoteSyncError{Op: op, Err: err}
		}
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errs.RemoteSyncError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
