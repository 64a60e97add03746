// Package goals manages family goals and their sub-task sub-collections.
package goals

import (
	"context"
	"strings"

	"github.com/hearthhq/hearth/internal/app/domain/goals"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// Collection returns the goal collection for an identity.
func Collection(identity session.Identity) string {
	if identity.Zero() {
		return ""
	}
	return store.Join("users", identity.UID, "familyGoals")
}

// Service writes goal and sub-task mutations.
type Service struct {
	store store.Gateway
	log   *logger.Logger
}

// New constructs a goals service.
func New(gw store.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("goals")
	}
	return &Service{store: gw, log: log}
}

// AddGoal creates a goal in the active status.
func (s *Service) AddGoal(ctx context.Context, identity session.Identity, title string) (goals.Goal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return goals.Goal{}, apperrors.Validation("goal title is required")
	}
	collection := Collection(identity)
	if collection == "" {
		return goals.Goal{}, apperrors.Unauthorized("no active session")
	}

	goal := goals.Goal{Title: title, Status: goals.StatusActive, CreatedAt: store.Now()}
	id, err := s.store.Create(ctx, collection, store.Document{
		"title":     goal.Title,
		"status":    goal.Status,
		"createdAt": goal.CreatedAt,
	})
	if err != nil {
		return goals.Goal{}, err
	}
	goal.ID = id
	s.log.WithField("goal_id", id).Info("goal added")
	return goal, nil
}

// DeleteGoal removes a goal and its sub-tasks. Sub-tasks go first; the store
// does not cascade, so a crash mid-way can orphan the remainder, which the
// next delete attempt cleans up.
func (s *Service) DeleteGoal(ctx context.Context, identity session.Identity, goalID string) error {
	collection := Collection(identity)
	if collection == "" {
		return apperrors.Unauthorized("no active session")
	}
	if goalID == "" {
		return apperrors.Validation("goal id is required")
	}

	subPath := store.Join(collection, goalID, goals.SubTasksCollection)
	subs, err := s.store.List(ctx, subPath, store.Query{})
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := s.store.Delete(ctx, store.Join(subPath, sub.ID())); err != nil {
			return err
		}
	}
	return s.store.Delete(ctx, store.Join(collection, goalID))
}

// AddSubTask creates a step under a goal.
func (s *Service) AddSubTask(ctx context.Context, identity session.Identity, goalID, text string) (goals.SubTask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return goals.SubTask{}, apperrors.Validation("sub-task text is required")
	}
	collection := Collection(identity)
	if collection == "" {
		return goals.SubTask{}, apperrors.Unauthorized("no active session")
	}
	if goalID == "" {
		return goals.SubTask{}, apperrors.Validation("goal id is required")
	}

	sub := goals.SubTask{Text: text, CreatedAt: store.Now()}
	id, err := s.store.Create(ctx, store.Join(collection, goalID, goals.SubTasksCollection), store.Document{
		"text":      sub.Text,
		"completed": false,
		"createdAt": sub.CreatedAt,
	})
	if err != nil {
		return goals.SubTask{}, err
	}
	sub.ID = id
	return sub, nil
}

// ToggleSubTask sets a sub-task's completion. Completing records who did it;
// un-completing always clears the attribution.
func (s *Service) ToggleSubTask(ctx context.Context, identity session.Identity, goalID, subTaskID string, completed bool) error {
	collection := Collection(identity)
	if collection == "" {
		return apperrors.Unauthorized("no active session")
	}
	if goalID == "" || subTaskID == "" {
		return apperrors.Validation("goal id and sub-task id are required")
	}

	fields := store.Document{"completed": completed}
	if completed {
		fields["completedBy"] = identity.UID
	} else {
		fields["completedBy"] = nil
	}
	path := store.Join(collection, goalID, goals.SubTasksCollection, subTaskID)
	return s.store.Set(ctx, path, fields, true)
}

// DeleteSubTask removes one step.
func (s *Service) DeleteSubTask(ctx context.Context, identity session.Identity, goalID, subTaskID string) error {
	collection := Collection(identity)
	if collection == "" {
		return apperrors.Unauthorized("no active session")
	}
	if goalID == "" || subTaskID == "" {
		return apperrors.Validation("goal id and sub-task id are required")
	}
	return s.store.Delete(ctx, store.Join(collection, goalID, goals.SubTasksCollection, subTaskID))
}
