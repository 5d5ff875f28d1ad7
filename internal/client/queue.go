package client

import (
	"context"
	"errors"
)

// ErrRejected marks a server response that will never succeed on retry (a
// validation or authorization failure). Transport implementations wrap
// permanent failures with it; anything else is treated as transient and the
// action stays queued for the next reconnection.
var ErrRejected = errors.New("rejected by server")

type ActionType int

const (
	ActionAdd ActionType = iota
	ActionUpdate
	ActionDelete
	ActionReorder
)

func (actionType ActionType) String() string {
	switch actionType {
	case ActionAdd:
		return "add"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionReorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// Action is one queued offline mutation. Targets referencing a temp id carry
// it structurally; replay resolves them through the id-translation map, never
// through string rewriting.
type Action struct {
	Type       ActionType
	TaskID     string
	Task       Task
	Patch      Patch
	OrderedIDs []string
}

// Server is the canonical store as seen from the client. The REST transport
// implements it; tests swap in fakes.
type Server interface {
	FetchTasks(ctx context.Context, listID uint) ([]Task, error)
	CreateTask(ctx context.Context, listID uint, task Task) (Task, error)
	UpdateTask(ctx context.Context, listID uint, taskID string, patch Patch) (Task, error)
	DeleteTask(ctx context.Context, listID uint, taskID string) error
	ReorderTasks(ctx context.Context, listID uint, orderedIDs []string) error
}

// SnapshotStore persists the last known task set per list for instant,
// possibly stale display on the next start.
type SnapshotStore interface {
	Load(listID uint) ([]Task, bool)
	Save(listID uint, tasks []Task)
}

// MemorySnapshotStore keeps snapshots in process memory.
type MemorySnapshotStore struct {
	snapshots map[uint][]Task
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snapshots: make(map[uint][]Task)}
}

func (store *MemorySnapshotStore) Load(listID uint) ([]Task, bool) {
	tasks, ok := store.snapshots[listID]
	if !ok {
		return nil, false
	}
	copied := make([]Task, len(tasks))
	copy(copied, tasks)
	return copied, true
}

func (store *MemorySnapshotStore) Save(listID uint, tasks []Task) {
	copied := make([]Task, len(tasks))
	copy(copied, tasks)
	store.snapshots[listID] = copied
}
