// Package clickup is a thin client for the ClickUp REST API v2, exposing
// the fetch/update/comment contract the rest of the agent builds on.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/taskpulse/taskpulse/internal/models"
)

// DefaultBaseURL is the public ClickUp API endpoint.
const DefaultBaseURL = "https://api.clickup.com/api/v2"

const requestTimeout = 30 * time.Second

// Filter narrows a task fetch.
type Filter struct {
	Statuses      []string
	Assignee      string
	IncludeClosed bool
	// Limit stops pagination once this many tasks have been fetched
	// (0 means fetch everything).
	Limit int
}

// Source is the task-source contract consumed by the scoring loop and the
// reporting engine.
type Source interface {
	FetchTasks(ctx context.Context, filter Filter) ([]models.Task, error)
	TaskDetails(ctx context.Context, taskID string) (*models.Task, error)
	SetCustomField(ctx context.Context, taskID, fieldID string, value any) error
	AddComment(ctx context.Context, taskID, text string) error
	SetStatus(ctx context.Context, taskID, status string) error
}

// APIError is a non-success response from ClickUp.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clickup api returned %d: %s", e.StatusCode, e.Body)
}

// Client is the HTTP implementation of Source. Exactly one of listID/teamID
// scopes the task endpoints.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	listID       string
	teamID       string
	buildBackoff func() backoff.BackOff
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithBackoff overrides the retry schedule for transient failures.
func WithBackoff(factory func() backoff.BackOff) Option {
	return func(c *Client) { c.buildBackoff = factory }
}

// NewClient builds a ClickUp client authenticated with token, scoped to a
// list or a team.
func NewClient(token, listID, teamID string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    DefaultBaseURL,
		token:      token,
		listID:     listID,
		teamID:     teamID,
		buildBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 10 * time.Second
			return backoff.WithMaxRetries(b, 3)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTasks pages through the scoped task endpoint until the API reports
// the last page, the page comes back empty, or the filter limit is reached.
func (c *Client) FetchTasks(ctx context.Context, filter Filter) ([]models.Task, error) {
	path, err := c.tasksPath()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("subtasks", "true")
	params.Set("include_closed", strconv.FormatBool(filter.IncludeClosed))
	for _, status := range filter.Statuses {
		if trimmed := strings.TrimSpace(status); trimmed != "" {
			params.Add("statuses[]", trimmed)
		}
	}
	if filter.Assignee != "" {
		params.Add("assignees[]", filter.Assignee)
	}

	var tasks []models.Task
	for page := 0; ; page++ {
		params.Set("page", strconv.Itoa(page))
		payload, err := c.do(ctx, http.MethodGet, path, params, nil)
		if err != nil {
			return nil, err
		}
		pageTasks, _ := payload["tasks"].([]any)
		if len(pageTasks) == 0 {
			break
		}
		for _, raw := range pageTasks {
			if m, ok := raw.(map[string]any); ok {
				tasks = append(tasks, models.TaskFromAPI(m))
			}
		}
		if filter.Limit > 0 && len(tasks) >= filter.Limit {
			tasks = tasks[:filter.Limit]
			break
		}
		if last, _ := payload["last_page"].(bool); last {
			break
		}
	}

	slog.Debug("fetched tasks from clickup", "count", len(tasks))
	return tasks, nil
}

// TaskDetails fetches the full record for one task.
func (c *Client) TaskDetails(ctx context.Context, taskID string) (*models.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, nil
	}
	payload, err := c.do(ctx, http.MethodGet, "/task/"+taskID, nil, nil)
	if err != nil {
		return nil, err
	}
	task := models.TaskFromAPI(payload)
	return &task, nil
}

// SetCustomField writes a custom-field value. ClickUp only updates custom
// fields reliably through the per-field endpoint, so each field is its own
// request.
func (c *Client) SetCustomField(ctx context.Context, taskID, fieldID string, value any) error {
	path := fmt.Sprintf("/task/%s/field/%s", taskID, fieldID)
	_, err := c.do(ctx, http.MethodPost, path, nil, map[string]any{"value": value})
	return err
}

// AddComment posts a comment without notifying watchers.
func (c *Client) AddComment(ctx context.Context, taskID, text string) error {
	path := fmt.Sprintf("/task/%s/comment", taskID)
	_, err := c.do(ctx, http.MethodPost, path, nil, map[string]any{
		"comment_text": text,
		"notify_all":   false,
	})
	return err
}

// SetStatus transitions a task to the given status label.
func (c *Client) SetStatus(ctx context.Context, taskID, status string) error {
	_, err := c.do(ctx, http.MethodPut, "/task/"+taskID, nil, map[string]any{"status": status})
	return err
}

func (c *Client) tasksPath() (string, error) {
	switch {
	case c.listID != "":
		return "/list/" + c.listID + "/task", nil
	case c.teamID != "":
		return "/team/" + c.teamID + "/task", nil
	default:
		return "", fmt.Errorf("no task source configured: need a list id or a team id")
	}
}

// do executes one API call with retry on rate limits, server errors, and
// transport failures. The decoded JSON object is returned; empty bodies
// decode to an empty map.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) (map[string]any, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	var result map[string]any
	operation := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			slog.Warn("clickup request failed, will retry", "method", method, "path", path, "error", err)
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			slog.Warn("clickup returned transient status, will retry",
				"method", method, "path", path, "status", resp.StatusCode)
			return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(&APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))})
		}

		result = map[string]any{}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, &result); err != nil {
			// Some write endpoints answer with non-JSON bodies; treat as empty.
			slog.Debug("non-JSON response from clickup", "method", method, "path", path)
			result = map[string]any{}
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.buildBackoff(), ctx)); err != nil {
		return nil, err
	}
	return result, nil
}
