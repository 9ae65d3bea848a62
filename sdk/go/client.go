package kriyasdk

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
)

// Client is a minimal Kriya HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ClientName  string `json:"clientName"`
	ProjectName string `json:"projectName"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Stage       string `json:"stage"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// CrewMember represents a crew listing entry.
type CrewMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	JoinDate    string `json:"joinDate,omitempty"`
	Performance int    `json:"performance"`
	Tenure      string `json:"tenure"`
}

// WorkshopClient represents a client record.
type WorkshopClient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// WebhookResult is the outcome of an ingested email.
type WebhookResult struct {
	Success bool   `json:"success"`
	TaskID  int64  `json:"taskId"`
	Message string `json:"message"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ListTasks returns the full task list.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, "api/tasks", nil, &resp)
	return resp, err
}

// CreateTask creates a task; omitted fields get server-side defaults.
func (c *Client) CreateTask(ctx context.Context, t Task) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "api/tasks", t, &resp)
	return resp, err
}

// UpdateTask overwrites a task by id.
func (c *Client) UpdateTask(ctx context.Context, id int64, t Task) error {
	return c.do(ctx, http.MethodPut, "api/tasks/"+strconv.FormatInt(id, 10), t, nil)
}

// DeleteTask removes a task by id.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "api/tasks/"+strconv.FormatInt(id, 10), nil, nil)
}

// ListCrew returns the crew with derived tenure.
func (c *Client) ListCrew(ctx context.Context) ([]CrewMember, error) {
	var resp []CrewMember
	err := c.do(ctx, http.MethodGet, "api/crew", nil, &resp)
	return resp, err
}

// ListClients returns all known clients.
func (c *Client) ListClients(ctx context.Context) ([]WorkshopClient, error) {
	var resp []WorkshopClient
	err := c.do(ctx, http.MethodGet, "api/clients", nil, &resp)
	return resp, err
}

// AddClient registers a client by name, returning the existing record when
// the name is already known.
func (c *Client) AddClient(ctx context.Context, name string) (WorkshopClient, error) {
	var resp WorkshopClient
	err := c.do(ctx, http.MethodPost, "api/clients", map[string]string{"name": name}, &resp)
	return resp, err
}

// IngestEmail posts a work-order email to the webhook.
func (c *Client) IngestEmail(ctx context.Context, from, subject, body string) (WebhookResult, error) {
	var resp WebhookResult
	err := c.do(ctx, http.MethodPost, "api/webhooks/email", map[string]string{
		"from":    from,
		"subject": subject,
		"body":    body,
	}, &resp)
	return resp, err
}

// Categories returns the stage pipeline per category.
func (c *Client) Categories(ctx context.Context) (map[string][]string, error) {
	var resp map[string][]string
	err := c.do(ctx, http.MethodGet, "api/categories", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
