// Package todos keeps the local todo collection and edit form in step with
// the remote API. Local state only ever changes from a server response.
package todos

import (
	"github.com/idilsaglam/tada-remote/internal/model"
)

// Form mirrors the title/description inputs.
type Form struct {
	Title       string
	Description string
}

// State is the client-side view: the ordered collection, the edit cursor
// and the form scratch fields. It is not safe for concurrent use; a single
// event loop owns it.
type State struct {
	Items   []model.Todo
	Editing *model.Todo
	Form    Form
}

// IsEditing reports whether the edit cursor is set.
func (s *State) IsEditing() bool { return s.Editing != nil }

// Replace swaps the whole collection for what the list endpoint returned.
func (s *State) Replace(items []model.Todo) {
	out := make([]model.Todo, len(items))
	copy(out, items)
	s.Items = out
}

// Appended adds a created record at the end. The form is cleared only while
// it still holds what was sent and no edit has taken it over.
func (s *State) Appended(t model.Todo, sent Form) {
	s.Items = append(s.Items, t)
	if s.Editing == nil && s.Form == sent {
		s.Form = Form{}
	}
}

// Replaced swaps in the server's copy for the record with id. Records with
// other ids are untouched. A response without an id keeps the requested one.
func (s *State) Replaced(id string, t model.Todo) {
	if t.TodoID == "" {
		t.TodoID = id
	}
	for i := range s.Items {
		if s.Items[i].TodoID == id {
			s.Items[i] = t
		}
	}
	if s.Editing != nil && s.Editing.TodoID == id {
		cur := t
		s.Editing = &cur
	}
}

// Removed drops every record with the given id.
func (s *State) Removed(id string) {
	out := make([]model.Todo, 0, len(s.Items))
	for _, t := range s.Items {
		if t.TodoID != id {
			out = append(out, t)
		}
	}
	s.Items = out
}

// BeginEdit points the cursor at t and seeds the form from it.
func (s *State) BeginEdit(t model.Todo) {
	cur := t
	s.Editing = &cur
	s.Form = Form{Title: t.Title, Description: t.Description}
}

// CancelEdit clears the cursor and empties the form.
func (s *State) CancelEdit() {
	s.Editing = nil
	s.Form = Form{}
}

// Find returns the record with id, if present.
func (s *State) Find(id string) (model.Todo, bool) {
	for _, t := range s.Items {
		if t.TodoID == id {
			return t, true
		}
	}
	return model.Todo{}, false
}

// Counts returns done and pending totals.
func (s *State) Counts() (done, pending int) {
	for _, t := range s.Items {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}
