package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Todo is a remote todo record. The server assigns TodoID and CreatedAt.
type Todo struct {
	TodoID      string    `json:"todoId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// NewTodo is the creation body sent to POST /todos.
type NewTodo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Patch is a partial field set for PUT /todos/{id}.
// Nil fields are left out of the request.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// EditPatch sets title and description, as sent by a full edit.
func EditPatch(title, description string) Patch {
	return Patch{Title: &title, Description: &description}
}

// CompletedPatch sets only the completed flag.
func CompletedPatch(done bool) Patch {
	return Patch{Completed: &done}
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Apply returns t with the patch's set fields written over it.
func (p Patch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO form
// ("2024-03-01T10:20:30.123456") the backend writes; the latter is read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		ts.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		ts.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}
