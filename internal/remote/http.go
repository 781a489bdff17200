package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juakali/scanflow/internal/model"
)

// DefaultTimeout bounds every remote call. Field devices sit on flaky mobile
// links; a call that has not answered in this window is treated as a network
// failure and handed to the queue rather than left hanging.
const DefaultTimeout = 12 * time.Second

// HTTPAuthority talks to the package/scan API over HTTP.
//
// Endpoints:
//
//	GET  {base}/v1/packages/{code}
//	POST {base}/v1/packages/{code}/actions
//	POST {base}/v1/bulk-actions
type HTTPAuthority struct {
	baseURL string
	token   string // operator bearer token, supplied by the session layer
	client  *http.Client
}

// HTTPOption configures an HTTPAuthority.
type HTTPOption func(*HTTPAuthority)

// WithHTTPClient overrides the underlying http.Client. The client's Timeout
// is kept as-is, so tests can shorten it.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(a *HTTPAuthority) { a.client = c }
}

// WithBearerToken sets the Authorization bearer token for all calls.
func WithBearerToken(token string) HTTPOption {
	return func(a *HTTPAuthority) { a.token = token }
}

// NewHTTPAuthority creates an authority client for the given base URL.
func NewHTTPAuthority(baseURL string, opts ...HTTPOption) *HTTPAuthority {
	a := &HTTPAuthority{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchPackage retrieves the authoritative snapshot for a code.
func (a *HTTPAuthority) FetchPackage(ctx context.Context, code string) (model.Snapshot, error) {
	const op = "fetch package"

	endpoint := fmt.Sprintf("%s/v1/packages/%s", a.baseURL, url.PathEscape(code))
	resp, err := a.do(ctx, op, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer resp.Body.Close()

	var snap model.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return model.Snapshot{}, &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return snap, nil
}

// SubmitAction submits one scan action carrying its idempotency token.
func (a *HTTPAuthority) SubmitAction(ctx context.Context, req ActionRequest) (ActionResult, error) {
	const op = "submit action"

	endpoint := fmt.Sprintf("%s/v1/packages/%s/actions", a.baseURL, url.PathEscape(req.Code))
	resp, err := a.do(ctx, op, http.MethodPost, endpoint, req)
	if err != nil {
		return ActionResult{}, err
	}
	defer resp.Body.Close()

	var result ActionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ActionResult{}, &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return result, nil
}

// SubmitBulk submits a whole batch in one request and returns the per-code
// results exactly as the authority reported them. Count verification is the
// caller's job; the wire layer does not editorialize.
func (a *HTTPAuthority) SubmitBulk(ctx context.Context, req BulkRequest) ([]BulkItemResult, error) {
	const op = "submit bulk"

	endpoint := a.baseURL + "/v1/bulk-actions"
	resp, err := a.do(ctx, op, http.MethodPost, endpoint, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var results []BulkItemResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return results, nil
}

// do performs one request and classifies the failure modes:
//   - transport errors and timeouts -> *NetworkError (retryable)
//   - 5xx -> *NetworkError (the server may recover; retryable)
//   - 404 -> ErrNotFound
//   - other 4xx -> *ApplicationError carrying the server's message
func (a *HTTPAuthority) do(ctx context.Context, op, method, endpoint string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode >= 500 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))}
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		msg := readErrorMessage(resp.Body)
		resp.Body.Close()
		return nil, &ApplicationError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	return resp, nil
}

// readErrorMessage extracts the server's message from an error body.
// Falls back to the raw body when it isn't the usual {"message": ...} shape.
func readErrorMessage(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(b))
}
