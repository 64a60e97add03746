package meals

import (
	"context"
	"testing"

	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
)

var member = session.Identity{UID: "u1"}

func TestSetCell_MergePreservesOtherCells(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	if err := svc.SetCell(ctx, member, "monday", "dinner", "Pasta"); err != nil {
		t.Fatalf("set monday: %v", err)
	}
	if err := svc.SetCell(ctx, member, "tuesday", "lunch", "Soup"); err != nil {
		t.Fatalf("set tuesday: %v", err)
	}

	plan, err := svc.Plan(ctx, member)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Get("monday", "dinner") != "Pasta" || plan.Get("tuesday", "lunch") != "Soup" {
		t.Fatalf("cells lost: %+v", plan)
	}
}

func TestSetCell_EmptyNameClears(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	if err := svc.SetCell(ctx, member, "monday", "dinner", "Pasta"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := svc.SetCell(ctx, member, "monday", "dinner", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}

	plan, _ := svc.Plan(ctx, member)
	if plan.Get("monday", "dinner") != "" {
		t.Fatalf("cell not cleared: %+v", plan)
	}
}

func TestSetCell_Validation(t *testing.T) {
	svc := New(store.NewMemory(), nil)
	ctx := context.Background()

	if err := svc.SetCell(ctx, member, "funday", "dinner", "x"); !apperrors.IsValidation(err) {
		t.Fatalf("bad day: %v", err)
	}
	if err := svc.SetCell(ctx, member, "monday", "brunch", "x"); !apperrors.IsValidation(err) {
		t.Fatalf("bad type: %v", err)
	}
	if err := svc.SetCell(ctx, session.Identity{}, "monday", "dinner", "x"); apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Fatalf("no session: %v", err)
	}
}

func TestPlan_EmptyBeforeFirstWrite(t *testing.T) {
	svc := New(store.NewMemory(), nil)
	plan, err := svc.Plan(context.Background(), member)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Cells) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan)
	}
}

func TestAddItem_DedupeByNameAndType(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	first, err := svc.AddItem(ctx, member, "Pasta", "dinner")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	dup, err := svc.AddItem(ctx, member, "  pasta ", "dinner")
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if dup.ID != first.ID {
		t.Fatalf("duplicate should return the existing item: %+v vs %+v", dup, first)
	}

	// Same name, different meal type is a distinct entry.
	other, err := svc.AddItem(ctx, member, "Pasta", "lunch")
	if err != nil {
		t.Fatalf("other type: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("different type should not dedupe")
	}

	docs, _ := m.List(ctx, ItemsCollection(member), store.Query{})
	if len(docs) != 2 {
		t.Fatalf("catalog should hold 2 items, got %d", len(docs))
	}
}

func TestDeleteItem(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil)
	ctx := context.Background()

	item, _ := svc.AddItem(ctx, member, "Soup", "lunch")
	if err := svc.DeleteItem(ctx, member, item.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, store.Join(ItemsCollection(member), item.ID)); !apperrors.IsNotFound(err) {
		t.Fatalf("item should be gone: %v", err)
	}
}
