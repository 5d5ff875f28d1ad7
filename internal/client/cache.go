package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrOffline reports that a sync was requested while the cache is offline.
var ErrOffline = errors.New("offline")

type State int

const (
	StateEmpty State = iota
	StateHydrating
	StateHydrated
)

// ListCache holds the optimistic local copy of one list's tasks. Reads are
// instant from the local set; mutations apply locally and queue for the
// server. While connected the queue is flushed by Sync; while disconnected
// it accumulates and replays on reconnection.
type ListCache struct {
	mu        sync.Mutex
	listID    uint
	server    Server
	snapshots SnapshotStore

	state  State
	online bool
	tasks  []Task
	queue  []Action
	// idMap translates client temp ids to server-assigned ids once an Add is
	// confirmed; queued dependents resolve through it at replay time.
	idMap map[string]string
	// abandoned records temp ids whose Add will never reach the server,
	// either rejected by it or cancelled locally before replay. Dependents
	// naming such an id are dropped instead of deferred.
	abandoned map[string]bool
}

func NewListCache(listID uint, server Server, snapshots SnapshotStore) *ListCache {
	return &ListCache{
		listID:    listID,
		server:    server,
		snapshots: snapshots,
		state:     StateEmpty,
		online:    true,
		idMap:     make(map[string]string),
		abandoned: make(map[string]bool),
	}
}

func (cache *ListCache) State() State {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.state
}

func (cache *ListCache) SetOnline(online bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.online = online
}

func (cache *ListCache) Tasks() []Task {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	copied := make([]Task, len(cache.tasks))
	copy(copied, cache.tasks)
	return copied
}

func (cache *ListCache) PendingActions() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return len(cache.queue)
}

// Hydrate shows the persisted snapshot immediately, then reconciles against
// the canonical store when online. A failed canonical fetch leaves the stale
// snapshot visible and the cache in Hydrating.
func (cache *ListCache) Hydrate(ctx context.Context) error {
	cache.mu.Lock()
	if cache.state == StateEmpty {
		if snapshot, ok := cache.snapshots.Load(cache.listID); ok {
			cache.tasks = snapshot
		}
		cache.state = StateHydrating
	}
	online := cache.online
	cache.mu.Unlock()

	if !online {
		return nil
	}
	return cache.Sync(ctx)
}

// AddTask appends an optimistic entry under a client-generated temp id and
// queues the creation.
func (cache *ListCache) AddTask(task Task) Task {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if task.ID == "" {
		task.ID = tempIDPrefix + uuid.NewString()
	}
	task.ListID = cache.listID
	task.Order = len(cache.tasks) + 1

	cache.tasks = append(cache.tasks, task)
	cache.queue = append(cache.queue, Action{Type: ActionAdd, TaskID: task.ID, Task: task})
	return task
}

func (cache *ListCache) UpdateTask(taskID string, patch Patch) bool {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	index := cache.indexOf(taskID)
	if index < 0 {
		return false
	}
	applyPatch(&cache.tasks[index], patch)

	// An update to an entry whose Add is still queued folds into the Add:
	// the server will see the final content in one create.
	if IsTempID(taskID) {
		for queueIndex := range cache.queue {
			action := &cache.queue[queueIndex]
			if action.Type == ActionAdd && action.TaskID == taskID {
				applyPatch(&action.Task, patch)
				return true
			}
		}
	}

	cache.queue = append(cache.queue, Action{Type: ActionUpdate, TaskID: taskID, Patch: patch})
	return true
}

func (cache *ListCache) DeleteTask(taskID string) bool {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	index := cache.indexOf(taskID)
	if index < 0 {
		return false
	}
	cache.tasks = append(cache.tasks[:index], cache.tasks[index+1:]...)

	// Deleting a temp entry whose Add never reached the server cancels the
	// whole pair locally; the server must not see a create-then-delete.
	// The temp id is marked abandoned so queued reorders naming it resolve
	// instead of waiting for a confirmation that can never come.
	if IsTempID(taskID) && cache.dropQueuedActionsFor(taskID) {
		cache.abandoned[taskID] = true
		return true
	}

	cache.queue = append(cache.queue, Action{Type: ActionDelete, TaskID: taskID})
	return true
}

func (cache *ListCache) Reorder(orderedIDs []string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	positions := make(map[string]int, len(orderedIDs))
	for index, id := range orderedIDs {
		positions[id] = index
	}
	for index := range cache.tasks {
		if position, ok := positions[cache.tasks[index].ID]; ok {
			cache.tasks[index].Order = position
		}
	}
	sortTasksByOrder(cache.tasks)

	cache.queue = append(cache.queue, Action{Type: ActionReorder, OrderedIDs: append([]string(nil), orderedIDs...)})
}

// Sync replays the offline queue, then re-fetches canonical state and
// reconciles the visible set. Failed actions stay queued for the next sync;
// only actions whose dependency permanently failed are abandoned.
func (cache *ListCache) Sync(ctx context.Context) error {
	cache.mu.Lock()
	if !cache.online {
		cache.mu.Unlock()
		return ErrOffline
	}
	cache.mu.Unlock()

	cache.replay(ctx)

	serverTasks, err := cache.server.FetchTasks(ctx, cache.listID)
	if err != nil {
		return err
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.applyCanonicalLocked(serverTasks)
	cache.state = StateHydrated
	cache.snapshots.Save(cache.listID, cache.tasks)
	return nil
}

// replay drains the queue against the server. Adds go first so later actions
// referencing a temp id can be rewritten to the server-assigned id; actions
// whose temp dependency is not yet resolved are deferred, not dropped.
func (cache *ListCache) replay(ctx context.Context) {
	cache.mu.Lock()
	pending := cache.queue
	cache.queue = nil
	cache.mu.Unlock()

	remaining := make([]Action, 0, len(pending))

	for _, action := range pending {
		if action.Type != ActionAdd {
			continue
		}
		created, err := cache.server.CreateTask(ctx, cache.listID, action.Task)
		switch {
		case err == nil:
			cache.confirmAdd(action.TaskID, created.ID)
		case errors.Is(err, ErrRejected):
			cache.markAbandoned(action.TaskID)
			cache.removeLocal(action.TaskID)
		default:
			remaining = append(remaining, action)
		}
	}

	for _, action := range pending {
		switch action.Type {
		case ActionAdd:
			// handled above

		case ActionUpdate, ActionDelete:
			target, status := cache.resolveTarget(action.TaskID)
			switch status {
			case targetAbandoned:
				continue
			case targetDeferred:
				remaining = append(remaining, action)
				continue
			}
			var err error
			if action.Type == ActionUpdate {
				_, err = cache.server.UpdateTask(ctx, cache.listID, target, action.Patch)
			} else {
				err = cache.server.DeleteTask(ctx, cache.listID, target)
			}
			if err != nil && !errors.Is(err, ErrRejected) {
				remaining = append(remaining, action)
			}

		case ActionReorder:
			translated := make([]string, 0, len(action.OrderedIDs))
			deferred := false
			for _, id := range action.OrderedIDs {
				target, status := cache.resolveTarget(id)
				if status == targetAbandoned {
					continue
				}
				if status == targetDeferred {
					deferred = true
					break
				}
				translated = append(translated, target)
			}
			if deferred {
				remaining = append(remaining, action)
				continue
			}
			if err := cache.server.ReorderTasks(ctx, cache.listID, translated); err != nil && !errors.Is(err, ErrRejected) {
				remaining = append(remaining, action)
			}
		}
	}

	cache.mu.Lock()
	// Mutations made while replay ran come after the survivors.
	cache.queue = append(remaining, cache.queue...)
	cache.mu.Unlock()
}

type targetStatus int

const (
	targetReady targetStatus = iota
	targetDeferred
	targetAbandoned
)

func (cache *ListCache) resolveTarget(taskID string) (string, targetStatus) {
	if !IsTempID(taskID) {
		return taskID, targetReady
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if realID, mapped := cache.idMap[taskID]; mapped {
		return realID, targetReady
	}
	if cache.abandoned[taskID] {
		return "", targetAbandoned
	}
	return "", targetDeferred
}

func (cache *ListCache) markAbandoned(taskID string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.abandoned[taskID] = true
}

func (cache *ListCache) confirmAdd(tempID string, realID string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.idMap[tempID] = realID
	if index := cache.indexOf(tempID); index >= 0 {
		cache.tasks[index].ID = realID
	}
}

func (cache *ListCache) removeLocal(taskID string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if index := cache.indexOf(taskID); index >= 0 {
		cache.tasks = append(cache.tasks[:index], cache.tasks[index+1:]...)
	}
}

// applyCanonicalLocked replaces the visible set with the server's, keeping
// only unconfirmed temp entries. A server task whose content signature
// matches a temp entry is that entry confirmed: the temp id maps to the
// real one and the temp copy disappears without duplication.
func (cache *ListCache) applyCanonicalLocked(serverTasks []Task) {
	signatureToID := make(map[string]string, len(serverTasks))
	for _, serverTask := range serverTasks {
		signature := contentSignature(serverTask)
		if _, exists := signatureToID[signature]; !exists {
			signatureToID[signature] = serverTask.ID
		}
	}

	visible := make([]Task, len(serverTasks))
	copy(visible, serverTasks)

	for _, localTask := range cache.tasks {
		if !IsTempID(localTask.ID) {
			continue
		}
		if _, confirmed := cache.idMap[localTask.ID]; confirmed {
			continue
		}
		if realID, echoed := signatureToID[contentSignature(localTask)]; echoed {
			cache.idMap[localTask.ID] = realID
			continue
		}
		visible = append(visible, localTask)
	}

	cache.tasks = visible
}

func (cache *ListCache) dropQueuedActionsFor(tempID string) bool {
	droppedAdd := false
	kept := cache.queue[:0]
	for _, action := range cache.queue {
		if action.TaskID == tempID {
			if action.Type == ActionAdd {
				droppedAdd = true
			}
			if action.Type == ActionAdd || action.Type == ActionUpdate {
				continue
			}
		}
		kept = append(kept, action)
	}
	cache.queue = kept
	return droppedAdd
}

func (cache *ListCache) indexOf(taskID string) int {
	for index := range cache.tasks {
		if cache.tasks[index].ID == taskID {
			return index
		}
	}
	return -1
}

func applyPatch(task *Task, patch Patch) {
	if value, ok := patch["text"].(string); ok {
		task.Text = value
	}
	if value, ok := patch["completed"].(bool); ok {
		task.Completed = value
	}
	if value, present := patch["due"]; present {
		switch due := value.(type) {
		case *time.Time:
			task.Due = due
		case time.Time:
			task.Due = &due
		case nil:
			task.Due = nil
		}
	}
	if value, ok := patch["priority"].(string); ok {
		task.Priority = value
	}
	if value, ok := patch["category"].(string); ok {
		task.Category = value
	}
	if value, ok := patch["repeat"].(string); ok {
		task.Repeat = value
	}
}

func sortTasksByOrder(tasks []Task) {
	sort.SliceStable(tasks, func(left int, right int) bool {
		return tasks[left].Order < tasks[right].Order
	})
}
