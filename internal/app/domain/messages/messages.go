// Package messages defines the household message hub.
package messages

import (
	"time"

	"github.com/hearthhq/hearth/internal/store"
)

// Collection is the shared message hub. Public data nests under the
// public/data document so paths keep collection/document parity.
const Collection = "public/data/communicationHub"

// RecentLimit caps how many messages the hub view shows.
const RecentLimit = 20

// Message is one hub post.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Decode builds a Message from a stored document.
func Decode(doc store.Document) (Message, error) {
	return Message{
		ID:        doc.ID(),
		Text:      doc.String("text"),
		SenderID:  doc.String("senderId"),
		CreatedAt: doc.Time("createdAt"),
	}, nil
}

// Less orders messages newest first.
func Less(a, b Message) bool { return a.CreatedAt.After(b.CreatedAt) }
