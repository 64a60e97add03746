// Package messages manages the append-only household message hub.
package messages

import (
	"context"
	"sort"
	"strings"

	"github.com/hearthhq/hearth/internal/app/domain/messages"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// Service posts to and reads from the hub.
type Service struct {
	store store.Gateway
	log   *logger.Logger
}

// New constructs a messages service.
func New(gw store.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("messages")
	}
	return &Service{store: gw, log: log}
}

// Send posts one message.
func (s *Service) Send(ctx context.Context, identity session.Identity, text string) (messages.Message, error) {
	if identity.Zero() {
		return messages.Message{}, apperrors.Unauthorized("no active session")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return messages.Message{}, apperrors.Validation("message text is required")
	}

	msg := messages.Message{Text: text, SenderID: identity.UID, CreatedAt: store.Now()}
	id, err := s.store.Create(ctx, messages.Collection, store.Document{
		"text":      msg.Text,
		"senderId":  msg.SenderID,
		"createdAt": msg.CreatedAt,
	})
	if err != nil {
		return messages.Message{}, err
	}
	msg.ID = id
	return msg, nil
}

// Recent reads the newest messages, capped at the hub limit. Older messages
// stay in the store but never reach the view.
func (s *Service) Recent(ctx context.Context) ([]messages.Message, error) {
	docs, err := s.store.List(ctx, messages.Collection, store.Query{
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   messages.RecentLimit,
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]messages.Message, 0, len(docs))
	for _, doc := range docs {
		m, _ := messages.Decode(doc)
		msgs = append(msgs, m)
	}
	sort.SliceStable(msgs, func(i, j int) bool { return messages.Less(msgs[i], msgs[j]) })
	if len(msgs) > messages.RecentLimit {
		msgs = msgs[:messages.RecentLimit]
	}
	return msgs, nil
}
