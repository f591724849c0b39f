// Package renderer is the client for the external template engine service.
// The engine is treated as opaque, slow and fallible: every call runs under
// a deadline and the resilience executor, and a timeout surfaces as a
// temporary failure rather than hanging the generation pipeline.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/launchdeck/launchdeck/internal/core/domain"
	"github.com/launchdeck/launchdeck/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	executor    *resilience.Executor
	callTimeout time.Duration
}

func New(baseURL string, callTimeout time.Duration, executor *resilience.Executor) *Client {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: callTimeout},
		executor:    executor,
		callTimeout: callTimeout,
	}
}

// ProcessTemplate renders the template text against the flattened data.
func (c *Client) ProcessTemplate(ctx context.Context, templateText string, data map[string]any) (string, error) {
	request := map[string]any{
		"template": templateText,
		"data":     data,
	}
	var response struct {
		Rendered string `json:"rendered"`
	}
	if err := c.call(ctx, "renderer.render", "/render", request, &response); err != nil {
		return "", err
	}
	return response.Rendered, nil
}

// Convert turns rendered text into the requested output format. Markdown is
// the rendered text itself; xlsx is built locally; pdf and docx are delegated
// to the engine's converters.
func (c *Client) Convert(ctx context.Context, renderedText string, format domain.DocumentFormat) ([]byte, error) {
	switch format {
	case domain.FormatMarkdown:
		return []byte(renderedText), nil
	case domain.FormatXLSX:
		return convertXLSX(renderedText)
	case domain.FormatPDF, domain.FormatDocx:
		request := map[string]any{"rendered": renderedText}
		var response struct {
			Content []byte `json:"content"`
		}
		operation := fmt.Sprintf("renderer.convert_%s", format)
		if err := c.call(ctx, operation, "/convert/"+string(format), request, &response); err != nil {
			return nil, err
		}
		if len(response.Content) == 0 {
			return nil, fmt.Errorf("converter returned empty %s output", format)
		}
		return response.Content, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func (c *Client) call(ctx context.Context, operation, path string, request, response any) error {
	fn := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, request, response)
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, fn, classifyRendererError)
	} else {
		err = fn(ctx)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.WrapError(domain.ErrTemporary, operation, err)
		}
		return err
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, request, response any) error {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call template engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &engineError{status: resp.StatusCode, body: strings.TrimSpace(string(payload))}
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("decode template engine response: %w", err)
	}
	return nil
}

type engineError struct {
	status int
	body   string
}

func (e *engineError) Error() string {
	return fmt.Sprintf("template engine returned %d: %s", e.status, e.body)
}

func classifyRendererError(err error) resilience.Classification {
	var engineErr *engineError
	if errors.As(err, &engineErr) {
		// Client-side errors will not heal on retry.
		if engineErr.status >= 400 && engineErr.status < 500 {
			return resilience.Classification{Retryable: false, RecordFailure: false}
		}
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retryable: false, RecordFailure: true}
	}
	return resilience.Classification{Retryable: true, RecordFailure: true}
}
