package todos

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tada-remote/internal/model"
)

// Service is the remote collection. *api.Client implements it.
type Service interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, in model.NewTodo) (model.Todo, error)
	Update(ctx context.Context, id string, p model.Patch) (model.Todo, error)
	Delete(ctx context.Context, id string) error
}

// Result is the outcome of one network call, applied with (*Client).Apply.
type Result interface{ op() string }

type Loaded struct {
	Items []model.Todo
	Err   error
}

type Created struct {
	Todo model.Todo
	Sent Form // inputs as the caller passed them
	Err  error
}

type Updated struct {
	ID   string
	Todo model.Todo
	Err  error
	Edit bool // issued by SaveEdit; success clears the cursor
}

type Deleted struct {
	ID  string
	Err error
}

func (Loaded) op() string  { return "load" }
func (Created) op() string { return "create" }
func (Updated) op() string { return "update" }
func (Deleted) op() string { return "delete" }

// Request performs the network half of an operation without touching state.
// It may run on any goroutine.
type Request func(ctx context.Context) Result

// Client pairs the local State with the remote Service.
//
// Every operation has two halves: a *Request method that captures its
// inputs and returns the network call, and Apply, which logs a failure or
// folds a success into State. The synchronous methods (Load, Create, ...)
// simply run both back to back.
type Client struct {
	State

	svc Service
	log *log.Logger
}

func New(svc Service, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{svc: svc, log: logger}
}

// LoadRequest fetches the full collection.
func (c *Client) LoadRequest() Request {
	return func(ctx context.Context) Result {
		items, err := c.svc.List(ctx)
		return Loaded{Items: items, Err: err}
	}
}

// CreateRequest returns nil for a blank title; nothing is sent.
func (c *Client) CreateRequest(title, description string) Request {
	sent := Form{Title: title, Description: description}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	in := model.NewTodo{Title: title, Description: description}
	return func(ctx context.Context) Result {
		t, err := c.svc.Create(ctx, in)
		return Created{Todo: t, Sent: sent, Err: err}
	}
}

func (c *Client) UpdateRequest(id string, p model.Patch) Request {
	return c.update(id, p, false)
}

// ToggleRequest flips the completed flag of t as the caller last saw it.
func (c *Client) ToggleRequest(t model.Todo) Request {
	return c.update(t.TodoID, model.CompletedPatch(!t.Completed), false)
}

func (c *Client) DeleteRequest(id string) Request {
	return func(ctx context.Context) Result {
		return Deleted{ID: id, Err: c.svc.Delete(ctx, id)}
	}
}

// SaveEditRequest sends the form for the record under the cursor.
// It returns nil when nothing is being edited or the title is blank.
func (c *Client) SaveEditRequest() Request {
	if c.Editing == nil || strings.TrimSpace(c.Form.Title) == "" {
		return nil
	}
	p := model.EditPatch(strings.TrimSpace(c.Form.Title), c.Form.Description)
	return c.update(c.Editing.TodoID, p, true)
}

func (c *Client) update(id string, p model.Patch, edit bool) Request {
	return func(ctx context.Context) Result {
		t, err := c.svc.Update(ctx, id, p)
		return Updated{ID: id, Todo: t, Err: err, Edit: edit}
	}
}

// Apply folds r into State. A failed result is logged and leaves State as is;
// its error is returned so callers that care can report it.
func (c *Client) Apply(r Result) error {
	switch r := r.(type) {
	case Loaded:
		if r.Err != nil {
			c.log.Error("load todos", "op", r.op(), "err", r.Err)
			return r.Err
		}
		c.Replace(r.Items)
		c.log.Debug("loaded todos", "count", len(r.Items))
	case Created:
		if r.Err != nil {
			c.log.Error("create todo", "op", r.op(), "err", r.Err)
			return r.Err
		}
		c.Appended(r.Todo, r.Sent)
		c.log.Debug("created todo", "id", r.Todo.TodoID)
	case Updated:
		if r.Err != nil {
			c.log.Error("update todo", "op", r.op(), "id", r.ID, "err", r.Err)
			return r.Err
		}
		c.Replaced(r.ID, r.Todo)
		if r.Edit && c.Editing != nil && c.Editing.TodoID == r.ID {
			c.CancelEdit()
		}
		c.log.Debug("updated todo", "id", r.ID)
	case Deleted:
		if r.Err != nil {
			c.log.Error("delete todo", "op", r.op(), "id", r.ID, "err", r.Err)
			return r.Err
		}
		c.Removed(r.ID)
		c.log.Debug("deleted todo", "id", r.ID)
	}
	return nil
}

func (c *Client) run(ctx context.Context, req Request) error {
	if req == nil {
		return nil
	}
	return c.Apply(req(ctx))
}

// Load replaces the collection with the server's list.
func (c *Client) Load(ctx context.Context) error {
	return c.run(ctx, c.LoadRequest())
}

// Create posts a new record and appends the server's copy. A blank title is a no-op.
func (c *Client) Create(ctx context.Context, title, description string) error {
	return c.run(ctx, c.CreateRequest(title, description))
}

// Update sends a partial field set and replaces the local record with the response.
func (c *Client) Update(ctx context.Context, id string, p model.Patch) error {
	return c.run(ctx, c.UpdateRequest(id, p))
}

func (c *Client) ToggleComplete(ctx context.Context, t model.Todo) error {
	return c.run(ctx, c.ToggleRequest(t))
}

// Delete removes the record locally once the server call succeeds.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.run(ctx, c.DeleteRequest(id))
}

// SaveEdit updates the record under the cursor from the form, then clears the cursor.
func (c *Client) SaveEdit(ctx context.Context) error {
	return c.run(ctx, c.SaveEditRequest())
}
