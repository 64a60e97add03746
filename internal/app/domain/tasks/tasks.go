// Package tasks defines the household task model. Tasks exist in two
// scopes: private to one member and shared across the household.
package tasks

import (
	"time"

	"github.com/hearthhq/hearth/internal/store"
)

// Scope selects the private or shared task collection.
type Scope string

const (
	ScopePrivate Scope = "private"
	ScopeShared  Scope = "shared"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool { return s == ScopePrivate || s == ScopeShared }

// Task is one to-do item. When Completed is false, CompletedBy and
// CompletedComment are always empty. OwnerID is set only on shared tasks,
// naming who added them; private tasks are owned by their collection.
type Task struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	Completed        bool      `json:"completed"`
	CompletedBy      string    `json:"completedBy,omitempty"`
	CompletedComment string    `json:"completedComment,omitempty"`
	DueDate          string    `json:"dueDate,omitempty"`
	OwnerID          string    `json:"ownerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Decode builds a Task from a stored document.
func Decode(doc store.Document) (Task, error) {
	return Task{
		ID:               doc.ID(),
		Text:             doc.String("text"),
		Completed:        doc.Bool("completed"),
		CompletedBy:      doc.String("completedBy"),
		CompletedComment: doc.String("completedComment"),
		DueDate:          doc.String("dueDate"),
		OwnerID:          doc.String("ownerId"),
		CreatedAt:        doc.Time("createdAt"),
	}, nil
}

// Less orders tasks oldest first, the stable display order.
func Less(a, b Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
