// Package lark is the HTTP client for the Lark/Feishu open platform. It
// implements both driven ports that talk upstream: token refresh against the
// OAuth endpoint and task listing against the Task v2 API.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
)

// Ensure Client implements the driven ports.
var _ driven.TokenRefresher = (*Client)(nil)
var _ driven.TaskSource = (*Client)(nil)

const (
	refreshPath = "/open-apis/authen/v2/oauth/token"
	tasksPath   = "/open-apis/task/v2/tasks"

	// taskPageSize matches the provider maximum for one page. The bridge
	// publishes a personal task list, which fits in a single page.
	taskPageSize = 50

	requestTimeout = 30 * time.Second
)

// Client calls the provider's OAuth and Task APIs.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
	limiter    *RateLimiter
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Useful for testing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock overrides the time source. Useful for testing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a provider client from application settings.
func NewClient(settings domain.LarkSettings, opts ...Option) *Client {
	c := &Client{
		baseURL:    settings.BaseURL,
		appID:      settings.AppID,
		appSecret:  settings.AppSecret,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    NewRateLimiter(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// refreshRequest is the JSON body for the v2 OAuth token endpoint.
type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// refreshResponse covers both the success and error shapes; the endpoint
// reports failures with a non-zero code in the same envelope.
type refreshResponse struct {
	Code                  int    `json:"code"`
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
}

// Refresh exchanges a refresh token for a new token pair. The provider
// rotates the refresh token on every exchange; the returned record replaces
// the old one wholesale.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(refreshRequest{
		GrantType:    "refresh_token",
		ClientID:     c.appID,
		ClientSecret: c.appSecret,
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.RecordRateLimitError(retryAfterSeconds(resp))
	}

	var tokenResp refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode refresh response (status %d): %w", resp.StatusCode, err)
	}

	if tokenResp.Code != 0 {
		return nil, mapRefreshError(&APIError{
			HTTPStatus:  resp.StatusCode,
			Code:        tokenResp.Code,
			Message:     tokenResp.Error,
			Description: tokenResp.ErrorDescription,
		})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh request failed with status %d", resp.StatusCode)
	}
	if tokenResp.AccessToken == "" || tokenResp.RefreshToken == "" {
		return nil, fmt.Errorf("refresh response missing token pair")
	}

	now := c.now()
	return &domain.Credentials{
		AccessToken:      tokenResp.AccessToken,
		RefreshToken:     tokenResp.RefreshToken,
		AccessExpiresAt:  now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		RefreshExpiresAt: now.Add(time.Duration(tokenResp.RefreshTokenExpiresIn) * time.Second),
		UpdatedAt:        now,
	}, nil
}

// taskItem is one task record on the wire. Millisecond timestamps arrive as
// strings.
type taskItem struct {
	GUID        string   `json:"guid"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	CompletedAt string   `json:"completed_at"`
	Due         *taskDue `json:"due"`
}

type taskDue struct {
	Timestamp flexInt64 `json:"timestamp"`
	IsAllDay  bool      `json:"is_all_day"`
}

type listTasksResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Items     []taskItem `json:"items"`
		HasMore   bool       `json:"has_more"`
		PageToken string     `json:"page_token"`
	} `json:"data"`
}

// ListTasks fetches the authenticated user's tasks. A rejected access token
// maps to ErrAuthRejected so the caller can refresh and retry once.
func (c *Client) ListTasks(ctx context.Context, accessToken string) ([]domain.Task, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%s?page_size=%d&type=my_tasks&user_id_type=open_id",
		c.baseURL, tasksPath, taskPageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create tasks request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tasks request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.RecordRateLimitError(retryAfterSeconds(resp))
	}

	var listResp listTasksResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("decode tasks response (status %d): %w", resp.StatusCode, err)
	}

	if listResp.Code != 0 {
		return nil, mapTaskError(&APIError{
			HTTPStatus: resp.StatusCode,
			Code:       listResp.Code,
			Message:    listResp.Msg,
		})
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tasks request failed with status %d", resp.StatusCode)
	}

	tasks := make([]domain.Task, 0, len(listResp.Data.Items))
	for _, item := range listResp.Data.Items {
		tasks = append(tasks, item.toDomain())
	}
	return tasks, nil
}

func (t taskItem) toDomain() domain.Task {
	task := domain.Task{
		ID:          t.GUID,
		Summary:     t.Summary,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.Due != nil && t.Due.Timestamp != 0 {
		task.Due = &domain.Due{
			Timestamp: int64(t.Due.Timestamp),
			IsAllDay:  t.Due.IsAllDay,
		}
	}
	return task
}

// flexInt64 decodes an integer that the API serialises either as a JSON
// number or as a quoted string.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	*f = flexInt64(v)
	return nil
}

func retryAfterSeconds(resp *http.Response) int {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return secs
}
