// Package docintel is a client for the remote document-analysis service.
//
// The service follows an asynchronous contract: a base64-encoded document is
// submitted to the model's analyze endpoint, the service answers with an
// opaque request id in a response header, and the caller polls the
// analyzeResults endpoint until the job reaches a terminal status.
package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Terminal job statuses. Anything else (including a missing status field)
// means the job is still running.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const (
	DefaultAPIVersion      = "2024-07-31-preview"
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollAttempts = 12
	DefaultSubmitRetries   = 3

	requestIDHeader = "apim-request-id"
	apiKeyHeader    = "Ocp-Apim-Subscription-Key"
)

// Config holds the connection settings for the analysis service.
type Config struct {
	Endpoint   string
	APIKey     string
	ModelID    string
	APIVersion string

	// PollInterval is the fixed wait between result queries.
	PollInterval time.Duration
	// MaxPollAttempts bounds polling; exhaustion yields a PollTimeoutError.
	MaxPollAttempts int
	// SubmitRetries bounds transparent retries of transport failures on submit.
	SubmitRetries uint64

	HTTPClient *http.Client
}

// Client submits documents for analysis and polls for results. It is safe
// for concurrent use; distinct jobs share only the underlying transport.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates an analysis client. Endpoint, APIKey and ModelID are required;
// the polling knobs default to 5s intervals and 12 attempts.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.ModelID == "" {
		return nil, fmt.Errorf("docintel: endpoint, api key and model id are required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if cfg.SubmitRetries == 0 {
		cfg.SubmitRetries = DefaultSubmitRetries
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{cfg: cfg, httpClient: httpClient}, nil
}

// ServiceError is the error detail the service attaches to a failed job.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BoundingRegion locates extracted content on a page.
type BoundingRegion struct {
	PageNumber int `json:"pageNumber"`
}

// Field is one raw extracted attribute as reported by the service.
type Field struct {
	Content         *string          `json:"content,omitempty"`
	BoundingRegions []BoundingRegion `json:"boundingRegions,omitempty"`
	Confidence      *float64         `json:"confidence,omitempty"`
}

// Result is the raw payload of a terminal analysis job.
type Result struct {
	Status        string         `json:"status"`
	Error         *ServiceError  `json:"error,omitempty"`
	AnalyzeResult *AnalyzeResult `json:"analyzeResult,omitempty"`
}

// AnalyzeResult holds the analyzed documents of a succeeded job.
type AnalyzeResult struct {
	Documents []AnalyzedDocument `json:"documents"`
}

// AnalyzedDocument is one recognized document with its field map.
type AnalyzedDocument struct {
	Fields map[string]Field `json:"fields"`
}

// Fields returns the field map of the first analyzed document, or nil when
// the result carries none.
func (r *Result) Fields() map[string]Field {
	if r == nil || r.AnalyzeResult == nil || len(r.AnalyzeResult.Documents) == 0 {
		return nil
	}
	return r.AnalyzeResult.Documents[0].Fields
}

type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

func (c *Client) analyzeURL() string {
	return fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		strings.TrimSuffix(c.cfg.Endpoint, "/"), c.cfg.ModelID, c.cfg.APIVersion)
}

func (c *Client) resultURL(requestID string) string {
	return fmt.Sprintf("%s/documentintelligence/documentModels/%s/analyzeResults/%s?api-version=%s",
		strings.TrimSuffix(c.cfg.Endpoint, "/"), c.cfg.ModelID, requestID, c.cfg.APIVersion)
}

// Submit issues an analysis request for a base64-encoded document and
// returns the request id assigned by the service. Transport failures and 5xx
// responses are retried with exponential backoff up to SubmitRetries times;
// other non-2xx responses fail immediately with a SubmissionError.
func (c *Client) Submit(ctx context.Context, payload string) (string, error) {
	body, err := json.Marshal(analyzeRequest{Base64Source: payload})
	if err != nil {
		return "", fmt.Errorf("marshal analyze request: %w", err)
	}

	operation := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analyzeURL(), bytes.NewReader(body))
		if err != nil {
			return "", backoff.Permanent(fmt.Errorf("create analyze request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(apiKeyHeader, c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("submit document: %w", err)
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("submit document: server error %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", backoff.Permanent(&SubmissionError{
				StatusCode: resp.StatusCode,
				Body:       strings.TrimSpace(string(respBody)),
			})
		}

		requestID := resp.Header.Get(requestIDHeader)
		if requestID == "" {
			return "", backoff.Permanent(fmt.Errorf("submit document: response missing %s header", requestIDHeader))
		}
		return requestID, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.SubmitRetries), ctx)

	requestID, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		return "", err
	}
	slog.Debug("document submitted for analysis", "request_id", requestID)
	return requestID, nil
}

// PollResult queries the job status at the configured fixed interval until
// it is terminal. A succeeded job yields its raw result, a failed job an
// AnalysisError, and an exhausted attempt budget a PollTimeoutError.
// Non-terminal responses, responses without a status field, and transient
// transport failures all consume one attempt.
func (c *Client) PollResult(ctx context.Context, requestID string) (*Result, error) {
	for attempt := 0; attempt < c.cfg.MaxPollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.cfg.PollInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := c.fetchResult(ctx, requestID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("poll attempt failed", "request_id", requestID, "attempt", attempt+1, "error", err)
			continue
		}

		switch result.Status {
		case StatusSucceeded:
			return result, nil
		case StatusFailed:
			analysisErr := &AnalysisError{RequestID: requestID, Message: "unknown error"}
			if result.Error != nil {
				analysisErr.Code = result.Error.Code
				analysisErr.Message = result.Error.Message
			}
			return nil, analysisErr
		default:
			// Still running, or the response had no status yet.
		}
	}

	return nil, &PollTimeoutError{RequestID: requestID, Attempts: c.cfg.MaxPollAttempts}
}

func (c *Client) fetchResult(ctx context.Context, requestID string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resultURL(requestID), nil)
	if err != nil {
		return nil, fmt.Errorf("create result request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch result: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// Analyze submits a document and polls until its job is terminal.
func (c *Client) Analyze(ctx context.Context, payload string) (*Result, error) {
	requestID, err := c.Submit(ctx, payload)
	if err != nil {
		return nil, err
	}
	return c.PollResult(ctx, requestID)
}
