// Package goals defines family goals and their sub-task checklists. Unlike
// the nested section lists, sub-tasks are real documents in a sub-collection
// under each goal.
package goals

import (
	"time"

	"github.com/hearthhq/hearth/internal/store"
)

// SubTasksCollection is the sub-collection name under each goal.
const SubTasksCollection = "subTasks"

// StatusActive is the status every goal starts with.
const StatusActive = "active"

// Goal is one family goal. SubTasks is filled by the feed's fan-out, not
// stored on the goal document itself.
type Goal struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	SubTasks  []SubTask `json:"subTasks,omitempty"`
}

// SubTask is one step toward a goal. CompletedBy names who completed it and
// is empty while Completed is false.
type SubTask struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Completed   bool      `json:"completed"`
	CompletedBy string    `json:"completedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Decode builds a Goal from a stored document.
func Decode(doc store.Document) (Goal, error) {
	return Goal{
		ID:        doc.ID(),
		Title:     doc.String("title"),
		Status:    doc.String("status"),
		CreatedAt: doc.Time("createdAt"),
	}, nil
}

// DecodeSubTask builds a SubTask from a stored document.
func DecodeSubTask(doc store.Document) SubTask {
	return SubTask{
		ID:          doc.ID(),
		Text:        doc.String("text"),
		Completed:   doc.Bool("completed"),
		CompletedBy: doc.String("completedBy"),
		CreatedAt:   doc.Time("createdAt"),
	}
}

// Attach merges fetched sub-task documents into the goal, oldest first.
func Attach(goal Goal, docs []store.Document) Goal {
	for _, doc := range docs {
		goal.SubTasks = append(goal.SubTasks, DecodeSubTask(doc))
	}
	return goal
}

// Less orders goals oldest first.
func Less(a, b Goal) bool { return a.CreatedAt.Before(b.CreatedAt) }
