package planner

import (
	"context"
	"testing"

	domain "github.com/hearthhq/hearth/internal/app/domain/planner"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
)

var member = session.Identity{UID: "u1"}

func eventSections(t *testing.T, m *store.Memory, path string) []domain.Section {
	t.Helper()
	doc, err := m.Get(context.Background(), path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	return domain.DecodeSections(doc["sections"])
}

func TestEventSectionItemToggleScenario(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	event, err := svc.AddEvent(ctx, member, "Birthday party", "2026-09-12")
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	path := EventPath(member, event.ID)

	if err := svc.AddSection(ctx, path, "Food"); err != nil {
		t.Fatalf("add section: %v", err)
	}
	sections := eventSections(t, m, path)
	if len(sections) != 1 || sections[0].Title != "Food" {
		t.Fatalf("section missing: %+v", sections)
	}

	if err := svc.AddItem(ctx, path, sections[0].ID, "Cake"); err != nil {
		t.Fatalf("add item: %v", err)
	}
	sections = eventSections(t, m, path)
	if len(sections[0].Items) != 1 || sections[0].Items[0].Text != "Cake" {
		t.Fatalf("item missing: %+v", sections)
	}

	itemID := sections[0].Items[0].ID
	if err := svc.ToggleItem(ctx, path, sections[0].ID, itemID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	sections = eventSections(t, m, path)
	if !sections[0].Items[0].Completed {
		t.Fatalf("item not completed: %+v", sections)
	}

	if err := svc.DeleteItem(ctx, path, sections[0].ID, itemID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if err := svc.DeleteSection(ctx, path, sections[0].ID); err != nil {
		t.Fatalf("delete section: %v", err)
	}
	if sections = eventSections(t, m, path); len(sections) != 0 {
		t.Fatalf("sections should be empty: %+v", sections)
	}
}

func TestToggleItem_UnknownIDStillWrites(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	event, _ := svc.AddEvent(ctx, member, "Party", "")
	path := EventPath(member, event.ID)
	if err := svc.AddSection(ctx, path, "Food"); err != nil {
		t.Fatalf("add section: %v", err)
	}

	writes := 0
	sub, err := m.Subscribe(EventsCollection(member), store.Query{}, func([]store.Document) { writes++ }, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	if err := svc.ToggleItem(ctx, path, "nope", "nope"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if writes != 2 { // initial snapshot + the no-op rewrite
		t.Fatalf("no-op toggle should still write, writes = %d", writes)
	}
	if sections := eventSections(t, m, path); len(sections) != 1 || len(sections[0].Items) != 0 {
		t.Fatalf("no-op toggle changed data: %+v", sections)
	}
}

func TestRewrite_LostUpdateIsLastWriteWins(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	event, _ := svc.AddEvent(ctx, member, "Party", "")
	path := EventPath(member, event.ID)

	// Both writers read the same empty state, then write sequentially.
	// The second whole-array write erases the first section.
	base := eventSections(t, m, path)
	first := domain.AddSection(base, "Food")
	second := domain.AddSection(base, "Music")

	if err := m.Set(ctx, path, store.Document{"sections": domain.EncodeSections(first)}, true); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := m.Set(ctx, path, store.Document{"sections": domain.EncodeSections(second)}, true); err != nil {
		t.Fatalf("second write: %v", err)
	}

	sections := eventSections(t, m, path)
	if len(sections) != 1 || sections[0].Title != "Music" {
		t.Fatalf("expected last write to win, got %+v", sections)
	}
}

func TestShoppingList_SpringsIntoExistence(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	if err := svc.AddSection(ctx, ShoppingListPath, "Groceries"); err != nil {
		t.Fatalf("add section: %v", err)
	}
	sections := eventSections(t, m, ShoppingListPath)
	if len(sections) != 1 || sections[0].Title != "Groceries" {
		t.Fatalf("shopping list not created: %+v", sections)
	}

	if err := svc.AddItem(ctx, ShoppingListPath, sections[0].ID, "Milk"); err != nil {
		t.Fatalf("add item: %v", err)
	}
	sections = eventSections(t, m, ShoppingListPath)
	if len(sections[0].Items) != 1 || sections[0].Items[0].Text != "Milk" {
		t.Fatalf("item missing: %+v", sections)
	}
}

func TestAddEvent_Validation(t *testing.T) {
	svc := New(store.NewMemory(), nil)
	ctx := context.Background()

	if _, err := svc.AddEvent(ctx, member, "", ""); !apperrors.IsValidation(err) {
		t.Fatalf("empty title: %v", err)
	}
	if _, err := svc.AddEvent(ctx, member, "Party", "12/09/2026"); !apperrors.IsValidation(err) {
		t.Fatalf("bad date: %v", err)
	}
	if _, err := svc.AddEvent(ctx, session.Identity{}, "Party", ""); apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Fatalf("no session: %v", err)
	}
}

func TestLists(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	list, err := svc.AddList(ctx, member, "Packing")
	if err != nil {
		t.Fatalf("add list: %v", err)
	}
	if err := svc.AddSection(ctx, ListPath(member, list.ID), "Clothes"); err != nil {
		t.Fatalf("add section: %v", err)
	}
	if err := svc.DeleteList(ctx, member, list.ID); err != nil {
		t.Fatalf("delete list: %v", err)
	}
	if _, err := m.Get(ctx, ListPath(member, list.ID)); !apperrors.IsNotFound(err) {
		t.Fatalf("list should be gone: %v", err)
	}
}

func TestCalendar_MergesEventsAndTasks(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	if _, err := svc.AddEvent(ctx, member, "Party", "2026-09-12"); err != nil {
		t.Fatalf("add event: %v", err)
	}
	if _, err := svc.AddEvent(ctx, member, "Undated", ""); err != nil {
		t.Fatalf("add event: %v", err)
	}
	if _, err := m.Create(ctx, "public/data/sharedTasks", store.Document{"text": "Book venue", "dueDate": "2026-09-01"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := m.Create(ctx, "public/data/sharedTasks", store.Document{"text": "No due date"}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	entries, err := svc.Calendar(ctx, member, "public/data/sharedTasks")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected only dated entries, got %+v", entries)
	}
	if entries[0].Kind != "task" || entries[0].Date != "2026-09-01" {
		t.Fatalf("entries not date-sorted: %+v", entries)
	}
	if entries[1].Kind != "event" || entries[1].Title != "Party" {
		t.Fatalf("event entry wrong: %+v", entries)
	}
}
