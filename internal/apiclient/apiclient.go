package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/marksync/internal/app"
	"github.com/openmined/marksync/internal/backup"
	"github.com/openmined/marksync/internal/codec"
	"github.com/openmined/marksync/internal/controlplane/handlers"
	"github.com/openmined/marksync/internal/preview"
	"github.com/openmined/marksync/internal/version"
)

const (
	retryCount    = 2
	retryInterval = 500 * time.Millisecond

	v1Status    = "/v1/status"
	v1Preview   = "/v1/preview"
	v1Resolve   = "/v1/conflicts/resolve"
	v1Backups   = "/v1/backups"
	v1Retention = "/v1/retention/enforce"
	v1Sweep     = "/v1/backups/sweep"
)

var ErrNoServerURL = errors.New("apiclient: server url missing")

// APIError is the error body returned by the control plane.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// FetchWithAuth performs an authenticated request. Implementations own token
// refresh and any retry policy of their own.
type FetchWithAuth func(r *http.Request) (*http.Response, error)

type Option func(*req.Client)

// WithFetch routes every request through fetch instead of the static bearer token.
func WithFetch(fetch FetchWithAuth) Option {
	return func(c *req.Client) {
		c.GetTransport().WrapRoundTripFunc(func(http.RoundTripper) req.HttpRoundTripFunc {
			return req.HttpRoundTripFunc(fetch)
		})
	}
}

// Client talks to a running control plane, so CLI commands can act on the daemon's state.
type Client struct {
	client *req.Client
}

func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}

	c := req.C().
		SetBaseURL(baseURL).
		SetCommonRetryCount(retryCount).
		SetCommonRetryFixedInterval(retryInterval).
		SetCommonRetryCondition(retryIdempotent).
		SetTimeout(30*time.Second).
		SetUserAgent(version.UserAgent()).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(codec.Marshal).
		SetJsonUnmarshal(codec.Unmarshal)
	if token != "" {
		c.SetCommonBearerAuthToken(token)
	}
	for _, opt := range opts {
		opt(c)
	}

	return &Client{client: c}, nil
}

// retryIdempotent retries transport errors of reads only. A write that timed out
// may already have been applied by the server.
func retryIdempotent(resp *req.Response, err error) bool {
	if err == nil || resp == nil || resp.Request == nil {
		return false
	}
	switch resp.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func (c *Client) Status(ctx context.Context) (*handlers.StatusResponse, error) {
	var resp handlers.StatusResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetSuccessResult(&resp).
		Get(v1Status)
	if err := handleAPIError(res, err, "status"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Preview(ctx context.Context, scope string) (*preview.Result, error) {
	var resp preview.Result
	r := c.client.R().SetContext(ctx).SetSuccessResult(&resp)
	if scope != "" {
		r.SetQueryParam("scope", scope)
	}
	res, err := r.Get(v1Preview)
	if err := handleAPIError(res, err, "preview"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Resolve(ctx context.Context, params *app.ResolveRequest) (*app.ResolveResult, error) {
	var resp app.ResolveResult
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&resp).
		Post(v1Resolve)
	if err := handleAPIError(res, err, "resolve"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListBackups(ctx context.Context, scheduleID string) (*handlers.BackupListResponse, error) {
	var resp handlers.BackupListResponse
	r := c.client.R().SetContext(ctx).SetSuccessResult(&resp)
	if scheduleID != "" {
		r.SetQueryParam("schedule", scheduleID)
	}
	res, err := r.Get(v1Backups)
	if err := handleAPIError(res, err, "list backups"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateBackup(ctx context.Context, params *handlers.CreateBackupRequest) (*backup.Record, error) {
	var resp backup.Record
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&resp).
		Post(v1Backups)
	if err := handleAPIError(res, err, "create backup"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteBackup(ctx context.Context, id string) error {
	res, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Delete(v1Backups + "/{id}")
	return handleAPIError(res, err, "delete backup")
}

func (c *Client) EnforceRetention(ctx context.Context, params *handlers.EnforceRetentionRequest) (*handlers.EnforceRetentionResponse, error) {
	var resp handlers.EnforceRetentionResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&resp).
		Post(v1Retention)
	if err := handleAPIError(res, err, "enforce retention"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SweepContent(ctx context.Context, params *handlers.SweepContentRequest) (*handlers.SweepContentResponse, error) {
	var resp handlers.SweepContentResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&resp).
		Post(v1Sweep)
	if err := handleAPIError(res, err, "sweep content"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok && err.Code != "" {
			return fmt.Errorf("%s: %w", operation, err)
		}
		return fmt.Errorf("api error: %s: status %d", operation, resp.StatusCode)
	}

	return nil
}
