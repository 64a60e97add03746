// Package devotional manages the shared daily devotional: a verse fetched
// once per day and the household's reflections on it.
package devotional

import (
	"context"
	"strings"
	"time"

	"github.com/hearthhq/hearth/internal/app/domain/devotional"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// Verse is one fetched scripture verse.
type Verse struct {
	Text      string
	Reference string
}

// VerseFetcher produces a random verse.
type VerseFetcher interface {
	Fetch(ctx context.Context) (Verse, error)
}

// Service owns devotional reads and writes.
type Service struct {
	store  store.Gateway
	verses VerseFetcher
	log    *logger.Logger
}

// New constructs a devotional service. verses may be nil, in which case
// entries are served without verse filling.
func New(gw store.Gateway, verses VerseFetcher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("devotional")
	}
	return &Service{store: gw, verses: verses, log: log}
}

// Path returns the document path for a date key.
func Path(dateKey string) string {
	return store.Join(devotional.Collection, dateKey)
}

// Today returns the current date key.
func Today() string { return time.Now().UTC().Format(devotional.DateKey) }

// Entry reads one day's devotional, filling the verse first if it has never
// been fetched for that day. The fill is merge-written so reflections saved
// before the verse arrived survive.
func (s *Service) Entry(ctx context.Context, dateKey string) (devotional.Entry, error) {
	if err := validDateKey(dateKey); err != nil {
		return devotional.Entry{}, err
	}

	doc, err := s.store.Get(ctx, Path(dateKey))
	switch {
	case apperrors.IsNotFound(err):
		doc = store.Document{"id": dateKey}
	case err != nil:
		return devotional.Entry{}, err
	}

	entry := devotional.Decode(doc)
	if entry.HasVerse() || s.verses == nil {
		return entry, nil
	}

	verse, err := s.verses.Fetch(ctx)
	if err != nil {
		// The entry is still usable without a verse; the next read retries.
		s.log.WithError(err).WithField("date", dateKey).Warn("verse fetch failed")
		return entry, nil
	}
	if err := s.store.Set(ctx, Path(dateKey), store.Document{
		"devotionalText":      verse.Text,
		"devotionalReference": verse.Reference,
	}, true); err != nil {
		return devotional.Entry{}, err
	}

	entry.Text = verse.Text
	entry.Reference = verse.Reference
	return entry, nil
}

// SaveThought records one member's reflection for the day. Only that
// member's field is merged, so everyone else's thoughts are untouched.
func (s *Service) SaveThought(ctx context.Context, identity session.Identity, dateKey, thought string) error {
	if identity.Zero() {
		return apperrors.Unauthorized("no active session")
	}
	if err := validDateKey(dateKey); err != nil {
		return err
	}
	thought = strings.TrimSpace(thought)
	if thought == "" {
		return apperrors.Validation("thought text is required")
	}

	return s.store.Set(ctx, Path(dateKey), store.Document{
		devotional.ThoughtField(identity.UID): thought,
	}, true)
}

func validDateKey(dateKey string) error {
	if _, err := time.Parse(devotional.DateKey, dateKey); err != nil {
		return apperrors.Validation("date key must be YYYY-MM-DD, got %q", dateKey)
	}
	return nil
}
