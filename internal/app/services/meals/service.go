// Package meals manages the weekly plan singleton and the meal catalog.
package meals

import (
	"context"
	"strings"

	"github.com/hearthhq/hearth/internal/app/domain/meals"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// PlanPath returns the member's week plan document.
func PlanPath(identity session.Identity) string {
	if identity.Zero() {
		return ""
	}
	return store.Join("users", identity.UID, "mealPlan", "currentWeek")
}

// ItemsCollection returns the member's meal catalog.
func ItemsCollection(identity session.Identity) string {
	if identity.Zero() {
		return ""
	}
	return store.Join("users", identity.UID, "mealItems")
}

// Service owns meal plan and catalog writes.
type Service struct {
	store store.Gateway
	log   *logger.Logger
}

// New constructs a meals service.
func New(gw store.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("meals")
	}
	return &Service{store: gw, log: log}
}

// SetCell plans a meal for one day/type cell. An empty name clears the
// cell. The write merges a single top-level field, so concurrent edits to
// other cells survive.
func (s *Service) SetCell(ctx context.Context, identity session.Identity, day, mealType, name string) error {
	if !meals.ValidDay(day) {
		return apperrors.Validation("unknown day %q", day)
	}
	if !meals.ValidType(mealType) {
		return apperrors.Validation("unknown meal type %q", mealType)
	}
	path := PlanPath(identity)
	if path == "" {
		return apperrors.Unauthorized("no active session")
	}

	var value any
	if name = strings.TrimSpace(name); name != "" {
		value = name
	}
	return s.store.Set(ctx, path, store.Document{meals.CellKey(day, mealType): value}, true)
}

// Plan reads the current week plan, empty when never written.
func (s *Service) Plan(ctx context.Context, identity session.Identity) (meals.WeekPlan, error) {
	path := PlanPath(identity)
	if path == "" {
		return meals.WeekPlan{}, apperrors.Unauthorized("no active session")
	}

	doc, err := s.store.Get(ctx, path)
	if apperrors.IsNotFound(err) {
		return meals.WeekPlan{Cells: map[string]string{}}, nil
	}
	if err != nil {
		return meals.WeekPlan{}, err
	}
	return meals.DecodePlan(doc), nil
}

// AddItem adds a catalog entry. A duplicate under (lowercased name, type)
// returns the existing entry instead of creating another.
func (s *Service) AddItem(ctx context.Context, identity session.Identity, name, mealType string) (meals.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return meals.Item{}, apperrors.Validation("meal name is required")
	}
	if !meals.ValidType(mealType) {
		return meals.Item{}, apperrors.Validation("unknown meal type %q", mealType)
	}
	collection := ItemsCollection(identity)
	if collection == "" {
		return meals.Item{}, apperrors.Unauthorized("no active session")
	}

	item := meals.Item{Name: name, Type: mealType, CreatedAt: store.Now()}

	existing, err := s.store.List(ctx, collection, store.Query{})
	if err != nil {
		return meals.Item{}, err
	}
	for _, doc := range existing {
		candidate, _ := meals.DecodeItem(doc)
		if meals.SameItem(candidate, item) {
			return candidate, nil
		}
	}

	id, err := s.store.Create(ctx, collection, store.Document{
		"name":      item.Name,
		"type":      item.Type,
		"createdAt": item.CreatedAt,
	})
	if err != nil {
		return meals.Item{}, err
	}
	item.ID = id
	s.log.WithField("meal", item.Name).WithField("type", item.Type).Info("meal item added")
	return item, nil
}

// DeleteItem removes a catalog entry.
func (s *Service) DeleteItem(ctx context.Context, identity session.Identity, itemID string) error {
	collection := ItemsCollection(identity)
	if collection == "" {
		return apperrors.Unauthorized("no active session")
	}
	if itemID == "" {
		return apperrors.Validation("item id is required")
	}
	return s.store.Delete(ctx, store.Join(collection, itemID))
}
