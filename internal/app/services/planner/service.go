// Package planner manages events, lists, the shared shopping list, and the
// section/item checklists nested inside them.
package planner

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hearthhq/hearth/internal/app/domain/planner"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// ShoppingListPath is the household's single shared shopping list document.
// Public data nests under the public/data document so paths keep
// collection/document parity.
const ShoppingListPath = "public/data/shoppingList/main"

// EventsCollection returns the event collection for an identity.
func EventsCollection(identity session.Identity) string {
	if identity.Zero() {
		return ""
	}
	return store.Join("users", identity.UID, "events")
}

// ListsCollection returns the list collection for an identity.
func ListsCollection(identity session.Identity) string {
	if identity.Zero() {
		return ""
	}
	return store.Join("users", identity.UID, "lists")
}

// Service owns planner writes. Section mutations follow one shape: read the
// parent, transform the decoded sections, write the whole array back.
type Service struct {
	store store.Gateway
	log   *logger.Logger
}

// New constructs a planner service.
func New(gw store.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("planner")
	}
	return &Service{store: gw, log: log}
}

// AddEvent creates an event, optionally dated YYYY-MM-DD.
func (s *Service) AddEvent(ctx context.Context, identity session.Identity, title, date string) (planner.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return planner.Event{}, apperrors.Validation("event title is required")
	}
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return planner.Event{}, apperrors.Validation("event date must be YYYY-MM-DD, got %q", date)
		}
	}
	collection := EventsCollection(identity)
	if collection == "" {
		return planner.Event{}, apperrors.Unauthorized("no active session")
	}

	event := planner.Event{Title: title, Date: date, CreatedAt: store.Now(), Sections: []planner.Section{}}
	doc := store.Document{
		"title":     event.Title,
		"createdAt": event.CreatedAt,
		"sections":  []any{},
	}
	if date != "" {
		doc["date"] = date
	}
	id, err := s.store.Create(ctx, collection, doc)
	if err != nil {
		return planner.Event{}, err
	}
	event.ID = id
	s.log.WithField("event_id", id).Info("event added")
	return event, nil
}

// DeleteEvent removes an event and its inline sections with it.
func (s *Service) DeleteEvent(ctx context.Context, identity session.Identity, eventID string) error {
	return s.deleteFrom(ctx, EventsCollection(identity), eventID)
}

// AddList creates a checklist.
func (s *Service) AddList(ctx context.Context, identity session.Identity, title string) (planner.List, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return planner.List{}, apperrors.Validation("list title is required")
	}
	collection := ListsCollection(identity)
	if collection == "" {
		return planner.List{}, apperrors.Unauthorized("no active session")
	}

	list := planner.List{Title: title, CreatedAt: store.Now(), Sections: []planner.Section{}}
	id, err := s.store.Create(ctx, collection, store.Document{
		"title":     list.Title,
		"createdAt": list.CreatedAt,
		"sections":  []any{},
	})
	if err != nil {
		return planner.List{}, err
	}
	list.ID = id
	return list, nil
}

// DeleteList removes a checklist.
func (s *Service) DeleteList(ctx context.Context, identity session.Identity, listID string) error {
	return s.deleteFrom(ctx, ListsCollection(identity), listID)
}

func (s *Service) deleteFrom(ctx context.Context, collection, id string) error {
	if collection == "" {
		return apperrors.Unauthorized("no active session")
	}
	if id == "" {
		return apperrors.Validation("document id is required")
	}
	return s.store.Delete(ctx, store.Join(collection, id))
}

// EventPath returns the document path of one event.
func EventPath(identity session.Identity, eventID string) string {
	c := EventsCollection(identity)
	if c == "" || eventID == "" {
		return ""
	}
	return store.Join(c, eventID)
}

// ListPath returns the document path of one list.
func ListPath(identity session.Identity, listID string) string {
	c := ListsCollection(identity)
	if c == "" || listID == "" {
		return ""
	}
	return store.Join(c, listID)
}

// AddSection appends a section to the parent at path.
func (s *Service) AddSection(ctx context.Context, path, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperrors.Validation("section title is required")
	}
	return s.rewrite(ctx, path, func(sections []planner.Section) []planner.Section {
		return planner.AddSection(sections, title)
	})
}

// AddItem appends an item to a section of the parent at path.
func (s *Service) AddItem(ctx context.Context, path, sectionID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.Validation("item text is required")
	}
	return s.rewrite(ctx, path, func(sections []planner.Section) []planner.Section {
		return planner.AddItem(sections, sectionID, text)
	})
}

// ToggleItem flips an item's completed state. Unknown ids are a silent no-op;
// the unchanged array is still written back.
func (s *Service) ToggleItem(ctx context.Context, path, sectionID, itemID string) error {
	return s.rewrite(ctx, path, func(sections []planner.Section) []planner.Section {
		return planner.ToggleItem(sections, sectionID, itemID)
	})
}

// DeleteSection removes a section and its items.
func (s *Service) DeleteSection(ctx context.Context, path, sectionID string) error {
	return s.rewrite(ctx, path, func(sections []planner.Section) []planner.Section {
		return planner.DeleteSection(sections, sectionID)
	})
}

// DeleteItem removes one item.
func (s *Service) DeleteItem(ctx context.Context, path, sectionID, itemID string) error {
	return s.rewrite(ctx, path, func(sections []planner.Section) []planner.Section {
		return planner.DeleteItem(sections, sectionID, itemID)
	})
}

// rewrite is the single mutation shape for nested sections: read the parent,
// transform, write the whole array back. An absent parent starts from empty
// sections, which is what lets the shopping list document spring into
// existence on first use.
func (s *Service) rewrite(ctx context.Context, path string, transform func([]planner.Section) []planner.Section) error {
	if path == "" {
		return apperrors.Validation("document path is required")
	}

	var sections []planner.Section
	doc, err := s.store.Get(ctx, path)
	switch {
	case err == nil:
		sections = planner.DecodeSections(doc["sections"])
	case apperrors.IsNotFound(err):
		sections = nil
	default:
		return err
	}

	next := transform(sections)
	return s.store.Set(ctx, path, store.Document{"sections": planner.EncodeSections(next)}, true)
}

// Shopping returns the shared shopping list's sections. A list nobody has
// touched yet reads as empty rather than missing.
func (s *Service) Shopping(ctx context.Context) ([]planner.Section, error) {
	doc, err := s.store.Get(ctx, ShoppingListPath)
	switch {
	case err == nil:
		return planner.DecodeSections(doc["sections"]), nil
	case apperrors.IsNotFound(err):
		return []planner.Section{}, nil
	default:
		return nil, err
	}
}

// CalendarEntry is one row of the calendar view: a dated event or a
// due-dated task.
type CalendarEntry struct {
	Date  string `json:"date"`
	Kind  string `json:"kind"` // "event" or "task"
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Calendar projects dated events and due-dated tasks into one sorted view.
// It is a read-side projection; nothing new is stored.
func (s *Service) Calendar(ctx context.Context, identity session.Identity, taskCollections ...string) ([]CalendarEntry, error) {
	collection := EventsCollection(identity)
	if collection == "" {
		return nil, apperrors.Unauthorized("no active session")
	}

	var entries []CalendarEntry
	events, err := s.store.List(ctx, collection, store.Query{})
	if err != nil {
		return nil, err
	}
	for _, doc := range events {
		if date := doc.String("date"); date != "" {
			entries = append(entries, CalendarEntry{Date: date, Kind: "event", ID: doc.ID(), Title: doc.String("title")})
		}
	}

	for _, tc := range taskCollections {
		docs, err := s.store.List(ctx, tc, store.Query{})
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if due := doc.String("dueDate"); due != "" {
				entries = append(entries, CalendarEntry{Date: due, Kind: "task", ID: doc.ID(), Title: doc.String("text")})
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	return entries, nil
}
