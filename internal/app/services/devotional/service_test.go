package devotional

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/hearthhq/hearth/internal/app/domain/devotional"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
)

const day = "2026-08-29"

type stubVerses struct {
	verse Verse
	err   error
	calls int
}

func (s *stubVerses) Fetch(ctx context.Context) (Verse, error) {
	s.calls++
	return s.verse, s.err
}

func TestEntry_FillsVerseOnce(t *testing.T) {
	m := store.NewMemory()
	verses := &stubVerses{verse: Verse{Text: "For God so loved the world", Reference: "John 3:16"}}
	svc := New(m, verses, nil)
	ctx := context.Background()

	entry, err := svc.Entry(ctx, day)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry.Text != "For God so loved the world" || entry.Reference != "John 3:16" {
		t.Fatalf("verse not filled: %+v", entry)
	}

	// A second read serves from the stored document.
	if _, err := svc.Entry(ctx, day); err != nil {
		t.Fatalf("second entry: %v", err)
	}
	if verses.calls != 1 {
		t.Fatalf("verse should be fetched once, got %d calls", verses.calls)
	}
}

func TestEntry_VerseFillPreservesThoughts(t *testing.T) {
	m := store.NewMemory()
	verses := &stubVerses{verse: Verse{Text: "verse", Reference: "ref"}}
	svc := New(m, verses, nil)
	ctx := context.Background()

	// A reflection lands before the verse is ever fetched.
	if err := svc.SaveThought(ctx, session.Identity{UID: "u1"}, day, "grateful today"); err != nil {
		t.Fatalf("save thought: %v", err)
	}

	entry, err := svc.Entry(ctx, day)
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry.Thoughts["u1"] != "grateful today" {
		t.Fatalf("verse fill clobbered thought: %+v", entry)
	}
	if !entry.HasVerse() {
		t.Fatalf("verse missing: %+v", entry)
	}
}

func TestEntry_FetchFailureIsNotFatal(t *testing.T) {
	m := store.NewMemory()
	verses := &stubVerses{err: apperrors.Transport(nil, "verse API down")}
	svc := New(m, verses, nil)

	entry, err := svc.Entry(context.Background(), day)
	if err != nil {
		t.Fatalf("entry should survive fetch failure: %v", err)
	}
	if entry.HasVerse() {
		t.Fatalf("unexpected verse: %+v", entry)
	}

	// Next read retries the fetch.
	if _, err := svc.Entry(context.Background(), day); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if verses.calls != 2 {
		t.Fatalf("expected a retry on next read, calls = %d", verses.calls)
	}
}

func TestSaveThought_TwoMembersDoNotCollide(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, nil, nil)
	ctx := context.Background()

	if err := svc.SaveThought(ctx, session.Identity{UID: "u1"}, day, "first"); err != nil {
		t.Fatalf("u1: %v", err)
	}
	if err := svc.SaveThought(ctx, session.Identity{UID: "u2"}, day, "second"); err != nil {
		t.Fatalf("u2: %v", err)
	}

	doc, err := m.Get(ctx, Path(day))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	entry := domain.Decode(doc)
	if entry.Thoughts["u1"] != "first" || entry.Thoughts["u2"] != "second" {
		t.Fatalf("thoughts collided: %+v", entry.Thoughts)
	}
}

func TestSaveThought_Validation(t *testing.T) {
	svc := New(store.NewMemory(), nil, nil)
	ctx := context.Background()

	if err := svc.SaveThought(ctx, session.Identity{}, day, "x"); apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Fatalf("no session: %v", err)
	}
	if err := svc.SaveThought(ctx, session.Identity{UID: "u1"}, "29/08/2026", "x"); !apperrors.IsValidation(err) {
		t.Fatalf("bad date: %v", err)
	}
	if err := svc.SaveThought(ctx, session.Identity{UID: "u1"}, day, "  "); !apperrors.IsValidation(err) {
		t.Fatalf("empty thought: %v", err)
	}
}

func TestVerseAPI_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reference":"John 3:16","text":"For God so loved the world\n"}`))
	}))
	defer srv.Close()

	api, err := NewVerseAPI(srv.URL, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	verse, err := api.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if verse.Text != "For God so loved the world" || verse.Reference != "John 3:16" {
		t.Fatalf("unexpected verse: %+v", verse)
	}
}

func TestVerseAPI_EmptyVerseRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reference":"","text":"  "}`))
	}))
	defer srv.Close()

	api, _ := NewVerseAPI(srv.URL, nil)
	if _, err := api.Fetch(context.Background()); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
