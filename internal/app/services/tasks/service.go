// Package tasks manages the private and shared to-do collections.
package tasks

import (
	"context"
	"strings"

	"github.com/hearthhq/hearth/internal/app/domain/tasks"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// SharedCollection is the household-wide task collection.
// SharedCollection is the household-wide task collection. Public data nests
// under the public/data document so paths keep collection/document parity.
const SharedCollection = "public/data/sharedTasks"

// Collection returns the task collection path for scope. Private tasks live
// under the member's own document; "" when the identity is unset.
func Collection(identity session.Identity, scope tasks.Scope) string {
	switch scope {
	case tasks.ScopeShared:
		return SharedCollection
	case tasks.ScopePrivate:
		if identity.Zero() {
			return ""
		}
		return store.Join("users", identity.UID, "privateTasks")
	}
	return ""
}

// Service writes task mutations through the store gateway. Reads come from
// the feeds, not from here.
type Service struct {
	store store.Gateway
	log   *logger.Logger
}

// New constructs a task service.
func New(gw store.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tasks")
	}
	return &Service{store: gw, log: log}
}

// Add creates a task in the given scope.
func (s *Service) Add(ctx context.Context, identity session.Identity, scope tasks.Scope, text, dueDate string) (tasks.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tasks.Task{}, apperrors.Validation("task text is required")
	}
	if !scope.Valid() {
		return tasks.Task{}, apperrors.Validation("unknown task scope %q", scope)
	}
	collection := Collection(identity, scope)
	if collection == "" {
		return tasks.Task{}, apperrors.Unauthorized("no active session")
	}

	task := tasks.Task{Text: text, DueDate: dueDate, CreatedAt: store.Now()}
	doc := store.Document{
		"text":      task.Text,
		"completed": false,
		"createdAt": task.CreatedAt,
	}
	if dueDate != "" {
		doc["dueDate"] = dueDate
	}
	if scope == tasks.ScopeShared {
		task.OwnerID = identity.UID
		doc["ownerId"] = task.OwnerID
	}

	id, err := s.store.Create(ctx, collection, doc)
	if err != nil {
		return tasks.Task{}, err
	}
	task.ID = id
	s.log.WithField("task_id", id).WithField("scope", string(scope)).Info("task added")
	return task, nil
}

// Toggle sets a task's completion. Completing records who did it and an
// optional comment; un-completing always clears both.
func (s *Service) Toggle(ctx context.Context, identity session.Identity, scope tasks.Scope, taskID string, completed bool, comment string) error {
	collection := Collection(identity, scope)
	if collection == "" {
		return apperrors.Unauthorized("no active session")
	}
	if taskID == "" {
		return apperrors.Validation("task id is required")
	}

	fields := store.Document{"completed": completed}
	if completed {
		fields["completedBy"] = identity.UID
		if comment = strings.TrimSpace(comment); comment != "" {
			fields["completedComment"] = comment
		} else {
			fields["completedComment"] = nil
		}
	} else {
		fields["completedBy"] = nil
		fields["completedComment"] = nil
	}

	return s.store.Set(ctx, store.Join(collection, taskID), fields, true)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, identity session.Identity, scope tasks.Scope, taskID string) error {
	collection := Collection(identity, scope)
	if collection == "" {
		return apperrors.Unauthorized("no active session")
	}
	if taskID == "" {
		return apperrors.Validation("task id is required")
	}
	return s.store.Delete(ctx, store.Join(collection, taskID))
}
