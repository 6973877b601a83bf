package homeapi

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

	"github.com/cenkalti/backoff/v4"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/anicoll/homedash/internal/pkg/model"
)

const defaultMaxRetries = 3

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithToken authenticates every request with a fixed bearer token.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.tokens = staticToken(token)
	}
}

// WithCredentials logs in on demand and renews the token before it expires.
func WithCredentials(email, password string) Option {
	return func(cl *Client) {
		cl.tokens = &loginSource{
			login:  cl.Login,
			creds:  model.Credentials{Email: email, Password: password},
			now:    time.Now,
			logger: cl.logger,
		}
	}
}

func WithMaxRetries(n uint64) Option {
	return func(cl *Client) {
		cl.maxRetries = n
	}
}

// WithBackOff overrides the retry policy, mostly for tests.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(cl *Client) {
		cl.newBackOff = fn
	}
}

// Client talks to the home-automation REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     tokenSource
	maxRetries uint64
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		logger: zap.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pathParam styles a path segment the way generated clients do.
func pathParam(name, value string) (string, error) {
	return runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
}

func (c *Client) path(format, name, value string) (string, error) {
	p, err := pathParam(name, value)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	return fmt.Sprintf(format, p), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, method, path, body, out, true)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, auth bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	reauthed := false
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if auth {
			if c.tokens == nil {
				return backoff.Permanent(ErrMissingCredential)
			}
			token, err := c.tokens.Token(ctx)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("failed to obtain token: %w", err))
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("home api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
			if resp.StatusCode == http.StatusUnauthorized && auth && !reauthed {
				// token may have been revoked server side, retry once with a fresh one
				reauthed = true
				c.tokens.Invalidate()
				return apiErr
			}
			if retryable(resp.StatusCode) {
				c.logger.Warn("home api request retryable", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return backoff.Permanent(fmt.Errorf("failed to decode %s %s: %w", method, path, err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	return backoff.Retry(op, policy)
}

func (c *Client) ListDashboards(ctx context.Context) ([]model.DashboardSummary, error) {
	var out []model.DashboardSummary
	if err := c.do(ctx, http.MethodGet, "/dashboards", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultDashboardID returns the id of the dashboard flagged as default,
// falling back to the first one listed.
func (c *Client) DefaultDashboardID(ctx context.Context) (string, error) {
	list, err := c.ListDashboards(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range list {
		if d.IsDefault {
			return d.ID, nil
		}
	}
	if len(list) > 0 {
		return list[0].ID, nil
	}
	return "", ErrNoDefault
}

func (c *Client) GetDashboard(ctx context.Context, id string) (*model.Dashboard, error) {
	p, err := c.path("/dashboards/%s", "id", id)
	if err != nil {
		return nil, err
	}
	out := &model.Dashboard{}
	if err := c.do(ctx, http.MethodGet, p, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RenameDashboard(ctx context.Context, id, name string) error {
	p, err := c.path("/dashboards/%s", "id", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, p, map[string]string{"name": name}, nil)
}

func (c *Client) UpdateLayouts(ctx context.Context, id string, layouts model.Layouts) error {
	p, err := c.path("/dashboards/%s/layouts", "id", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, p, map[string]any{"layouts": layouts}, nil)
}

func (c *Client) CreateWidget(ctx context.Context, dashboardID string, req model.CreateWidgetRequest) (*model.DashboardWidget, error) {
	p, err := c.path("/dashboards/%s/widgets", "id", dashboardID)
	if err != nil {
		return nil, err
	}
	if req.GenericDeviceIDs == nil {
		req.GenericDeviceIDs = []string{}
	}
	out := &model.DashboardWidget{}
	if err := c.do(ctx, http.MethodPost, p, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateWidget(ctx context.Context, id string, req model.UpdateWidgetRequest) (*model.DashboardWidget, error) {
	p, err := c.path("/dashboards/widgets/%s", "id", id)
	if err != nil {
		return nil, err
	}
	out := &model.DashboardWidget{}
	if err := c.do(ctx, http.MethodPut, p, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteWidget(ctx context.Context, id string) error {
	p, err := c.path("/dashboards/widgets/%s", "id", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, p, nil, nil)
}

func (c *Client) ExecuteWidget(ctx context.Context, id string, req model.ExecuteRequest) (*model.ExecuteResult, error) {
	p, err := c.path("/dashboards/widgets/%s/execute", "id", id)
	if err != nil {
		return nil, err
	}
	out := &model.ExecuteResult{}
	if err := c.do(ctx, http.MethodPost, p, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWidgetState(ctx context.Context, id string) ([]model.DeviceState, error) {
	p, err := c.path("/dashboards/widgets/%s/state", "id", id)
	if err != nil {
		return nil, err
	}
	var out model.WidgetStateResponse
	if err := c.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

func (c *Client) GetCatalogue(ctx context.Context) ([]model.Widget, error) {
	var out []model.Widget
	if err := c.do(ctx, http.MethodGet, "/dashboards/widgets/catalogue", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListProviders(ctx context.Context) ([]model.Provider, error) {
	var out []model.Provider
	if err := c.do(ctx, http.MethodGet, "/providers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAvailableDevices(ctx context.Context, providerID string) ([]model.AvailableDevice, error) {
	p, err := c.path("/devices/available/%s", "providerId", providerID)
	if err != nil {
		return nil, err
	}
	var out []model.AvailableDevice
	if err := c.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateDevice(ctx context.Context, req model.CreateDeviceRequest) (*model.Device, error) {
	out := &model.Device{}
	if err := c.do(ctx, http.MethodPost, "/devices", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	p, err := c.path("/devices/%s", "id", id)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, p, nil, nil)
}

// GetDeviceState returns the provider specific state snapshot of one device.
func (c *Client) GetDeviceState(ctx context.Context, id string) (any, error) {
	p, err := c.path("/devices/%s/state", "id", id)
	if err != nil {
		return nil, err
	}
	var out any
	if err := c.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ExecuteDevice(ctx context.Context, id string, req model.ExecuteRequest) (*model.ExecuteResult, error) {
	p, err := c.path("/devices/%s/execute", "id", id)
	if err != nil {
		return nil, err
	}
	out := &model.ExecuteResult{}
	if err := c.do(ctx, http.MethodPost, p, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	out := &model.AuthResponse{}
	if err := c.send(ctx, http.MethodPost, "/auth/login", creds, out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Register(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	out := &model.AuthResponse{}
	if err := c.send(ctx, http.MethodPost, "/auth/register", creds, out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	out := &model.User{}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
