// Package client is the offline-capable counterpart of the server: an
// optimistic per-list task cache with a typed mutation queue that replays
// against the canonical store once connectivity returns. Sync is
// at-least-once and eventually consistent; nothing is silently dropped.
package client

import (
	"fmt"
	"strings"
	"time"
)

const tempIDPrefix = "temp-"

// Task is the client-side view of a task. IDs are strings because a task the
// server has not confirmed yet carries a client-generated temp id.
type Task struct {
	ID        string     `json:"id"`
	ListID    uint       `json:"listId"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Due       *time.Time `json:"due"`
	Priority  string     `json:"priority"`
	Category  string     `json:"category"`
	Repeat    string     `json:"repeat"`
	Order     int        `json:"order"`
}

// Patch is a partial update: only the keys present are applied.
type Patch map[string]any

func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// contentSignature identifies a task by what the user typed rather than by
// id. A server echo whose signature matches an unconfirmed temp entry is the
// same task coming back with its real id.
func contentSignature(task Task) string {
	dueMillis := int64(0)
	if task.Due != nil {
		dueMillis = task.Due.UnixMilli()
	}
	return fmt.Sprintf("%s|%d|%s|%s|%s", task.Text, dueMillis, task.Priority, task.Category, task.Repeat)
}
