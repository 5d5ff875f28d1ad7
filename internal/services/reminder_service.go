package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/models"
)

const (
	defaultSweepInterval = 30 * time.Second
	ledgerRetention      = 48 * time.Hour
)

// PushSender delivers one payload to one subscription. Implementations own
// their retry policy and drop permanently dead endpoints.
type PushSender interface {
	Send(ctx context.Context, subscription models.PushSubscription, payload []byte) error
}

// ReminderService is the periodic sweep driving due-date reminders and
// recurrence roll-forward. It runs independently of any client connection;
// the ledger's conditional insert is what keeps overlapping or concurrent
// sweeps from double-sending.
type ReminderService struct {
	tasks         *db.TaskRepository
	lists         *db.ListRepository
	ledger        *db.LedgerRepository
	subscriptions *db.SubscriptionRepository
	broadcaster   Broadcaster
	push          PushSender
	interval      time.Duration
}

func NewReminderService(
	repositories *db.Repositories,
	broadcaster Broadcaster,
	push PushSender,
	interval time.Duration,
) *ReminderService {
	if interval <= 0 || interval > time.Minute {
		// Stage windows are one minute wide; a slower sweep would skip them.
		interval = defaultSweepInterval
	}
	return &ReminderService{
		tasks:         repositories.Tasks,
		lists:         repositories.Lists,
		ledger:        repositories.Ledger,
		subscriptions: repositories.Subscriptions,
		broadcaster:   broadcaster,
		push:          push,
		interval:      interval,
	}
}

func (service *ReminderService) Start(ctx context.Context) {
	ticker := time.NewTicker(service.interval)
	go func() {
		defer ticker.Stop()

		service.RunSweep(ctx, time.Now())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.RunSweep(ctx, time.Now())
			}
		}
	}()
}

// RunSweep executes one full pass at the given wall-clock instant. Exported
// so tests can drive the clock instead of waiting on the ticker.
func (service *ReminderService) RunSweep(ctx context.Context, now time.Time) {
	if err := service.ledger.PruneBefore(now.Add(-ledgerRetention)); err != nil {
		log.Printf("reminders: prune ledger failed: %v", err)
	}
	service.remind(ctx, now)
	service.advanceRecurring(now)
}

// ReminderEvent is the task:reminder payload sent to each member's personal
// room.
type ReminderEvent struct {
	Task        models.Task `json:"task"`
	Stage       string      `json:"stage"`
	MinutesLeft int         `json:"minutesLeft"`
	Message     string      `json:"message"`
}

func (service *ReminderService) remind(ctx context.Context, now time.Time) {
	tasks, err := service.tasks.OpenWithDue()
	if err != nil {
		log.Printf("reminders: fetch due tasks failed: %v", err)
		return
	}

	for _, task := range tasks {
		if task.Due == nil {
			continue
		}
		minutesUntil := task.Due.Sub(now).Minutes()
		stage, inWindow := stageFor(minutesUntil)
		if !inWindow {
			continue
		}

		claimed, err := service.ledger.Claim(task.ID, *task.Due, stage)
		if err != nil {
			log.Printf("reminders: claim %s for task %d failed: %v", stage, task.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		if err := service.deliver(ctx, task, stage, now); err != nil {
			log.Printf("reminders: deliver %s for task %d failed: %v", stage, task.ID, err)
		}
	}
}

func (service *ReminderService) deliver(ctx context.Context, task models.Task, stage string, now time.Time) error {
	list, err := service.lists.FindByID(task.ListID)
	if err != nil {
		return fmt.Errorf("resolve list %d: %w", task.ListID, err)
	}

	minutesLeft := int(task.Due.Sub(now).Minutes())
	if minutesLeft < 0 {
		minutesLeft = 0
	}
	event := ReminderEvent{
		Task:        task,
		Stage:       stage,
		MinutesLeft: minutesLeft,
		Message:     reminderMessage(task.Text, minutesLeft),
	}

	memberIDs := list.MemberIDs()
	for _, memberID := range memberIDs {
		service.broadcaster.SendToUser(memberID, EventTaskReminder, event)
	}

	subscriptions, err := service.subscriptions.ListForUsers(memberIDs)
	if err != nil {
		return fmt.Errorf("fetch subscriptions: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"title": list.Name,
		"body":  event.Message,
		"data": map[string]any{
			"taskId": task.ID,
			"listId": list.ID,
			"stage":  stage,
		},
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	for _, subscription := range subscriptions {
		// Each subscriber's delivery is isolated: one failure never blocks
		// the rest of the fan-out.
		if err := service.push.Send(ctx, subscription, payload); err != nil {
			log.Printf("reminders: push to subscription %d failed: %v", subscription.ID, err)
		}
	}
	return nil
}

// advanceRecurring rolls completed or overdue repeating tasks to their next
// occurrence. Never-completed overdue tasks advance too: they would
// otherwise pile up reminders for an instant that keeps receding into the
// past.
func (service *ReminderService) advanceRecurring(now time.Time) {
	tasks, err := service.tasks.Recurring()
	if err != nil {
		log.Printf("reminders: fetch recurring tasks failed: %v", err)
		return
	}

	for _, task := range tasks {
		if !task.Completed && (task.Due == nil || !task.Due.Before(now)) {
			continue
		}
		nextDue, ok := task.NextDue()
		if !ok {
			continue
		}

		if err := service.tasks.AdvanceRecurrence(task.ID, nextDue); err != nil {
			log.Printf("reminders: advance task %d failed: %v", task.ID, err)
			continue
		}

		task.Due = &nextDue
		task.Completed = false
		service.broadcaster.BroadcastToList(task.ListID, EventTaskUpdated, task)
	}
}

// stageFor maps minutes-until-due onto a reminder stage. Windows are
// half-open and one minute wide, sized to the sweep interval, so a slightly
// late sweep still lands in the window; the ledger claim keeps the widened
// window exactly-once.
func stageFor(minutesUntil float64) (string, bool) {
	switch {
	case 14 < minutesUntil && minutesUntil <= 15:
		return models.Stage15Min, true
	case 4 < minutesUntil && minutesUntil <= 5:
		return models.Stage5Min, true
	case -1 < minutesUntil && minutesUntil <= 0:
		return models.Stage0Min, true
	default:
		return "", false
	}
}

func reminderMessage(text string, minutesLeft int) string {
	if minutesLeft <= 0 {
		return fmt.Sprintf("%q is due now", text)
	}
	return fmt.Sprintf("%q is due in %d minutes", text, minutesLeft)
}
