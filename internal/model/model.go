// Package model defines domain entities used by services and repositories.
package model

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Entry is a single note.
type Entry struct {
	ID        int32           `json:"id"`   // store sequence, targets row-level updates
	UUID      uuid.UUID       `json:"uuid"` // public identity, assigned at creation
	Title     string          `json:"title"`
	Content   *string         `json:"content"`
	Data      json.RawMessage `json:"data"`
	Color     *string         `json:"color"`
	Archived  bool            `json:"archived"`
	CreatedOn *time.Time      `json:"created_on"`
	UpdatedOn *time.Time      `json:"updated_on"`
	Owner     uuid.UUID       `json:"owner"`
	Labels    []Label         `json:"labels"`
	Board     *uuid.UUID      `json:"board"` // nil means unfiled
}

// Board groups entries. Entries point at boards, never the reverse.
type Board struct {
	UUID      uuid.UUID       `json:"uuid"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data"`
	Color     *string         `json:"color"`
	CreatedOn *time.Time      `json:"created_on"`
	UpdatedOn *time.Time      `json:"updated_on"`
	Owner     uuid.UUID       `json:"owner"`
}

// Label is part of the storage contract but no backend stores labels yet.
type Label struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       uuid.UUID `json:"owner"`
}

// IndexedEntry is the projection of an Entry sent to the search index.
type IndexedEntry struct {
	UUID    uuid.UUID
	Title   string
	Content string
	Owner   uuid.UUID
}

// Projection builds the search document for e.
func (e *Entry) Projection() IndexedEntry {
	doc := IndexedEntry{UUID: e.UUID, Title: e.Title, Owner: e.Owner}
	if e.Content != nil {
		doc.Content = *e.Content
	}
	return doc
}

// Touched returns the most recent of UpdatedOn and CreatedOn.
func (e *Entry) Touched() time.Time {
	if e.UpdatedOn != nil {
		return *e.UpdatedOn
	}
	if e.CreatedOn != nil {
		return *e.CreatedOn
	}
	return time.Time{}
}

// FilterArchived keeps entries whose Archived flag equals *archived; nil keeps everything.
func FilterArchived(entries []Entry, archived *bool) []Entry {
	if archived == nil {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Archived == *archived {
			out = append(out, e)
		}
	}
	return out
}
