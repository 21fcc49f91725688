package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/session"
)

// Task is one item of the signed-in user's task list.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnmarshalJSON accepts timestamps with or without a zone offset.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		CreatedAt string `json:"created_at"`
		UpdatedAt string `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	created, err := session.ParseTimestamp(raw.CreatedAt)
	if err != nil {
		return err
	}
	updated, err := session.ParseTimestamp(raw.UpdatedAt)
	if err != nil {
		return err
	}
	*t = Task(raw.plain)
	t.CreatedAt, t.UpdatedAt = created, updated
	return nil
}

// Input is the body of create and update.
type Input struct {
	Title       string  `json:"title" validate:"notblank,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// Client calls the task endpoints.
type Client struct {
	conn *api.Conn
}

// New returns a Client for baseURL that sends every request through doer.
func New(baseURL string, doer api.Doer) *Client {
	return &Client{conn: api.NewConn(baseURL, doer)}
}

// List returns all tasks of the signed-in user.
func (c *Client) List(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.conn.JSON(ctx, http.MethodGet, "/api/tasks", nil, &out, nil); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Task{}
	}
	return out, nil
}

// Create adds a task.
func (c *Client) Create(ctx context.Context, in Input) (Task, error) {
	in = normalize(in)
	if err := api.Validate(in); err != nil {
		return Task{}, err
	}
	var out Task
	err := c.conn.JSON(ctx, http.MethodPost, "/api/tasks", in, &out, nil)
	return out, err
}

// Get returns one task. A task owned by someone else is reported as api.ErrNotFound.
func (c *Client) Get(ctx context.Context, id int64) (Task, error) {
	var out Task
	err := c.conn.JSON(ctx, http.MethodGet, taskPath(id), nil, &out, nil)
	return out, err
}

// Update replaces title and description of a task.
func (c *Client) Update(ctx context.Context, id int64, in Input) (Task, error) {
	in = normalize(in)
	if err := api.Validate(in); err != nil {
		return Task{}, err
	}
	var out Task
	err := c.conn.JSON(ctx, http.MethodPut, taskPath(id), in, &out, nil)
	return out, err
}

// Toggle flips the completion flag of a task.
func (c *Client) Toggle(ctx context.Context, id int64) (Task, error) {
	var out Task
	err := c.conn.JSON(ctx, http.MethodPatch, taskPath(id)+"/toggle", nil, &out, nil)
	return out, err
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.conn.JSON(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

func taskPath(id int64) string {
	return fmt.Sprintf("/api/tasks/%d", id)
}

func normalize(in Input) Input {
	in.Title = strings.TrimSpace(in.Title)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			in.Description = nil
		} else {
			in.Description = &d
		}
	}
	return in
}
