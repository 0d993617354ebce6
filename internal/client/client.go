package client

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

	"github.com/hiroki-koketsu/taskboard/internal/model"
)

// Client calls the task API on behalf of one principal.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the API at baseURL authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse struct {
	Count int           `json:"count"`
	Tasks []*model.Task `json:"tasks"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// List fetches the caller's tasks matching c.
func (c *Client) List(ctx context.Context, criteria model.Criteria) ([]*model.Task, error) {
	q := url.Values{}
	if criteria.Priority != "" {
		q.Set("priority", criteria.Priority)
	}
	if criteria.Status != "" {
		q.Set("status", criteria.Status)
	}
	if criteria.Search != "" {
		q.Set("search", criteria.Search)
	}
	path := "/api/v1/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *Client) Get(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) Create(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) Update(ctx context.Context, id string, req model.UpdateTaskRequest) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(id), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) Toggle(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := c.do(ctx, http.MethodPost, taskPath(id)+"/toggle", nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id string) string {
	return "/api/v1/tasks/" + url.PathEscape(id)
}

// do sends the request and decodes the response into out. API errors are
// returned as model.TaskError so callers can match them with errors.Is.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Unavailable(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return model.TaskError{Kind: kindForStatus(resp.StatusCode, e.Error), Message: e.Message}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func kindForStatus(status int, reported string) model.ErrorKind {
	if reported != "" {
		return model.ErrorKind(reported)
	}
	switch status {
	case http.StatusBadRequest:
		return model.KindValidation
	case http.StatusUnauthorized:
		return model.KindUnauthenticated
	case http.StatusForbidden:
		return model.KindForbidden
	case http.StatusNotFound:
		return model.KindNotFound
	case http.StatusConflict:
		return model.KindConflict
	default:
		return model.KindUnavailable
	}
}
