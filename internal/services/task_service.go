package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/models"
	"gorm.io/gorm"
)

// TaskService owns tasks scoped to a list. Callers name the list they are
// acting on; the service verifies the actor's role against that list and
// pins every task to it, so a task id under a foreign list behaves exactly
// like a missing one.
type TaskService struct {
	tasks       *db.TaskRepository
	ledger      *db.LedgerRepository
	membership  *MembershipService
	broadcaster Broadcaster
}

func NewTaskService(tasks *db.TaskRepository, ledger *db.LedgerRepository, membership *MembershipService, broadcaster Broadcaster) *TaskService {
	return &TaskService{tasks: tasks, ledger: ledger, membership: membership, broadcaster: broadcaster}
}

type CreateTaskInput struct {
	Text     string
	Due      *time.Time
	Priority string
	Category string
	Repeat   string
}

// TaskPatch carries partial-update semantics: nil pointer fields are left
// untouched. Due is tri-state: DueSet marks whether the payload carried the
// field at all, so "absent" and "cleared" stay distinguishable.
type TaskPatch struct {
	Text      *string
	Completed *bool
	Due       *time.Time
	DueSet    bool
	Priority  *string
	Category  *string
	Repeat    *string
}

func (service *TaskService) Create(actorID uint, listID uint, input CreateTaskInput) (models.Task, error) {
	list, err := service.membership.FindAuthorized(actorID, listID, models.RoleEditor)
	if err != nil {
		return models.Task{}, err
	}

	trimmedText := strings.TrimSpace(input.Text)
	if trimmedText == "" {
		return models.Task{}, fmt.Errorf("%w: task text required", ErrInvalidInput)
	}
	repeat, validRepeat := models.NormalizeRepeat(strings.TrimSpace(input.Repeat))
	if !validRepeat {
		return models.Task{}, fmt.Errorf("%w: repeat %q", ErrInvalidInput, input.Repeat)
	}

	task := models.Task{
		// listID comes from the authorization scope, never from the payload,
		// so a mismatched body cannot inject into a foreign list.
		ListID:    list.ID,
		CreatorID: actorID,
		Text:      trimmedText,
		Due:       input.Due,
		Priority:  strings.TrimSpace(input.Priority),
		Category:  strings.TrimSpace(input.Category),
		Repeat:    repeat,
		CreatedAt: time.Now(),
	}

	maxOrder, err := service.tasks.MaxOrder(list.ID, task.Recurring())
	if err != nil {
		return models.Task{}, err
	}
	task.SortOrder = maxOrder + 1

	if err := service.tasks.Create(&task); err != nil {
		return models.Task{}, err
	}

	service.broadcaster.BroadcastToList(list.ID, EventTaskCreated, task)
	return task, nil
}

func (service *TaskService) Update(actorID uint, listID uint, taskID uint, patch TaskPatch) (models.Task, error) {
	list, err := service.membership.FindAuthorized(actorID, listID, models.RoleEditor)
	if err != nil {
		return models.Task{}, err
	}

	task, err := service.tasks.FindInList(list.ID, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
		}
		return models.Task{}, err
	}

	updates := make(map[string]any)
	if patch.Text != nil {
		trimmedText := strings.TrimSpace(*patch.Text)
		if trimmedText == "" {
			return models.Task{}, fmt.Errorf("%w: task text required", ErrInvalidInput)
		}
		updates["text"] = trimmedText
	}
	if patch.Priority != nil {
		updates["priority"] = strings.TrimSpace(*patch.Priority)
	}
	if patch.Category != nil {
		updates["category"] = strings.TrimSpace(*patch.Category)
	}
	if patch.Repeat != nil {
		repeat, validRepeat := models.NormalizeRepeat(strings.TrimSpace(*patch.Repeat))
		if !validRepeat {
			return models.Task{}, fmt.Errorf("%w: repeat %q", ErrInvalidInput, *patch.Repeat)
		}
		updates["repeat"] = repeat
	}
	if patch.Completed != nil {
		updates["completed"] = *patch.Completed
		if *patch.Completed && !task.Completed && task.Recurring() {
			updates["last_completed_at"] = time.Now()
		}
	}

	dueChanged := patch.DueSet && !dueEqual(task.Due, patch.Due)
	if dueChanged {
		updates["due"] = patch.Due
	}

	if len(updates) > 0 {
		if err := service.tasks.UpdateFields(task.ID, updates); err != nil {
			return models.Task{}, err
		}
	}

	// The new due instant gets a fresh, unclaimed set of reminder stages;
	// stale claims for the old instant must not suppress them. Cleared only
	// once the write landed, so a failed update keeps the old claims.
	if dueChanged {
		if err := service.ledger.DeleteForTask(task.ID); err != nil {
			return models.Task{}, err
		}
	}

	updated, err := service.tasks.FindInList(list.ID, task.ID)
	if err != nil {
		return models.Task{}, err
	}

	service.broadcaster.BroadcastToList(list.ID, EventTaskUpdated, updated)
	return updated, nil
}

func (service *TaskService) Delete(actorID uint, listID uint, taskID uint) error {
	list, err := service.membership.FindAuthorized(actorID, listID, models.RoleEditor)
	if err != nil {
		return err
	}

	if err := service.tasks.Delete(list.ID, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
		}
		return err
	}
	if err := service.ledger.DeleteForTask(taskID); err != nil {
		return err
	}

	service.broadcaster.BroadcastToList(list.ID, EventTaskDeleted, map[string]any{
		"listId": list.ID,
		"taskId": taskID,
	})
	return nil
}

func (service *TaskService) List(actorID uint, listID uint) ([]models.Task, error) {
	list, err := service.membership.FindAuthorized(actorID, listID, models.RoleViewer)
	if err != nil {
		return nil, err
	}
	return service.tasks.ListForList(list.ID)
}

func (service *TaskService) ListAcrossLists(actorID uint) ([]db.TaskWithListName, error) {
	return service.tasks.ListForUser(actorID)
}

// Reorder reassigns sort positions to the given ids by their index. The ids
// must all belong to one recurrence class; the two classes are ordered
// independently, and a mixed batch would let one class's positions collide
// with the other's. Tasks absent from the batch keep their position.
func (service *TaskService) Reorder(actorID uint, listID uint, orderedIDs []uint) ([]models.Task, error) {
	list, err := service.membership.FindAuthorized(actorID, listID, models.RoleEditor)
	if err != nil {
		return nil, err
	}
	if len(orderedIDs) == 0 {
		return service.tasks.ListForList(list.ID)
	}

	classKnown := false
	recurringClass := false
	for _, taskID := range orderedIDs {
		task, err := service.tasks.FindInList(list.ID, taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
			}
			return nil, err
		}
		if !classKnown {
			recurringClass = task.Recurring()
			classKnown = true
			continue
		}
		if task.Recurring() != recurringClass {
			return nil, fmt.Errorf("%w: reorder mixes recurrence classes", ErrInvalidOperation)
		}
	}

	orders := make(map[uint]int, len(orderedIDs))
	for index, taskID := range orderedIDs {
		orders[taskID] = index
	}
	if err := service.tasks.UpdateOrders(list.ID, orders); err != nil {
		return nil, err
	}

	tasks, err := service.tasks.ListForList(list.ID)
	if err != nil {
		return nil, err
	}

	service.broadcaster.BroadcastToList(list.ID, EventListUpdated, map[string]any{
		"listId":    list.ID,
		"reordered": orderedIDs,
	})
	return tasks, nil
}

// dueEqual compares at millisecond precision; a nil new value only equals a
// nil old one.
func dueEqual(previous *time.Time, next *time.Time) bool {
	if previous == nil || next == nil {
		return previous == nil && next == nil
	}
	return previous.UnixMilli() == next.UnixMilli()
}
