package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/models"
)

type recordingPushSender struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (sender *recordingPushSender) Send(_ context.Context, _ models.PushSubscription, payload []byte) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	sender.payloads = append(sender.payloads, append([]byte(nil), payload...))
	return nil
}

func (sender *recordingPushSender) count() int {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	return len(sender.payloads)
}

func newSweepFixture(t *testing.T) (*db.Repositories, *recordingBroadcaster, *recordingPushSender, *ReminderService) {
	t.Helper()
	repositories := openTestRepositories(t)
	broadcaster := &recordingBroadcaster{}
	push := &recordingPushSender{}
	reminders := NewReminderService(repositories, broadcaster, push, 30*time.Second)
	return repositories, broadcaster, push, reminders
}

func TestStageForWindows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minutes  float64
		stage    string
		inWindow bool
	}{
		{minutes: 16, inWindow: false},
		{minutes: 15, stage: models.Stage15Min, inWindow: true},
		{minutes: 14.5, stage: models.Stage15Min, inWindow: true},
		{minutes: 14, inWindow: false},
		{minutes: 5, stage: models.Stage5Min, inWindow: true},
		{minutes: 4.2, stage: models.Stage5Min, inWindow: true},
		{minutes: 4, inWindow: false},
		{minutes: 0, stage: models.Stage0Min, inWindow: true},
		{minutes: -0.5, stage: models.Stage0Min, inWindow: true},
		{minutes: -1, inWindow: false},
		{minutes: -30, inWindow: false},
	}

	for _, testCase := range tests {
		stage, inWindow := stageFor(testCase.minutes)
		if inWindow != testCase.inWindow || stage != testCase.stage {
			t.Fatalf("stageFor(%v) = (%q, %v), want (%q, %v)",
				testCase.minutes, stage, inWindow, testCase.stage, testCase.inWindow)
		}
	}
}

func TestSweepDeliversReminderToEveryMemberOnce(t *testing.T) {
	t.Parallel()

	repositories, broadcaster, push, reminders := newSweepFixture(t)
	membership, tasks := newTestServices(repositories, NopBroadcaster{})
	owner := createTestUser(t, repositories, "owner@example.com")
	partner := createTestUser(t, repositories, "partner@example.com")

	list, err := membership.CreateList(owner.ID, "Shared")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if _, err := membership.AddOrUpdateMember(owner.ID, list.ID, partner.ID, models.RoleViewer); err != nil {
		t.Fatalf("add member: %v", err)
	}

	now := time.Now()
	due := now.Add(14*time.Minute + 30*time.Second)
	if _, err := tasks.Create(owner.ID, list.ID, CreateTaskInput{Text: "pick up keys", Due: &due}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := repositories.Subscriptions.Upsert(&models.PushSubscription{
		UserID:    partner.ID,
		Endpoint:  "https://push.example.com/partner",
		P256dhKey: "p256dh",
		AuthKey:   "auth",
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("register subscription: %v", err)
	}

	reminders.RunSweep(context.Background(), now)

	delivered := broadcaster.named(EventTaskReminder)
	if len(delivered) != 2 {
		t.Fatalf("expected reminder to both members' personal rooms, got %d", len(delivered))
	}
	rooms := map[string]bool{}
	for _, event := range delivered {
		rooms[event.Room] = true
		if reminder, ok := event.Payload.(ReminderEvent); ok {
			if reminder.Stage != models.Stage15Min {
				t.Fatalf("expected stage %s, got %s", models.Stage15Min, reminder.Stage)
			}
		}
	}
	if len(rooms) != 2 {
		t.Fatalf("expected two distinct personal rooms, got %v", rooms)
	}
	if push.count() != 1 {
		t.Fatalf("expected one push delivery, got %d", push.count())
	}

	// The same instant swept again claims nothing.
	broadcaster.reset()
	reminders.RunSweep(context.Background(), now.Add(10*time.Second))
	if repeated := broadcaster.named(EventTaskReminder); len(repeated) != 0 {
		t.Fatalf("expected no duplicate reminders, got %d", len(repeated))
	}
	if push.count() != 1 {
		t.Fatalf("expected no duplicate push, got %d", push.count())
	}
}

func TestSweepIgnoresTasksOutsideStageWindows(t *testing.T) {
	t.Parallel()

	repositories, broadcaster, _, reminders := newSweepFixture(t)
	membership, tasks := newTestServices(repositories, NopBroadcaster{})
	owner := createTestUser(t, repositories, "owner@example.com")
	list, err := membership.CreateList(owner.ID, "Quiet")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	now := time.Now()
	for _, offset := range []time.Duration{16 * time.Minute, 13 * time.Minute, 7 * time.Minute, -2 * time.Minute} {
		due := now.Add(offset)
		if _, err := tasks.Create(owner.ID, list.ID, CreateTaskInput{Text: "quiet", Due: &due}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	reminders.RunSweep(context.Background(), now)
	if delivered := broadcaster.named(EventTaskReminder); len(delivered) != 0 {
		t.Fatalf("expected no reminders outside windows, got %d", len(delivered))
	}
}

func TestSweepSkipsCompletedTasks(t *testing.T) {
	t.Parallel()

	repositories, broadcaster, _, reminders := newSweepFixture(t)
	membership, tasks := newTestServices(repositories, NopBroadcaster{})
	owner := createTestUser(t, repositories, "owner@example.com")
	list, err := membership.CreateList(owner.ID, "Done")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	now := time.Now()
	due := now.Add(14*time.Minute + 30*time.Second)
	task, err := tasks.Create(owner.ID, list.ID, CreateTaskInput{Text: "already done", Due: &due})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	completed := true
	if _, err := tasks.Update(owner.ID, list.ID, task.ID, TaskPatch{Completed: &completed}); err != nil {
		t.Fatalf("complete task: %v", err)
	}

	reminders.RunSweep(context.Background(), now)
	if delivered := broadcaster.named(EventTaskReminder); len(delivered) != 0 {
		t.Fatalf("expected no reminder for completed task, got %d", len(delivered))
	}
}

func TestSweepAdvancesCompletedRecurringTask(t *testing.T) {
	t.Parallel()

	repositories, broadcaster, _, reminders := newSweepFixture(t)
	membership, tasks := newTestServices(repositories, NopBroadcaster{})
	owner := createTestUser(t, repositories, "owner@example.com")
	list, err := membership.CreateList(owner.ID, "Habits")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	due := time.Now().Add(-time.Hour).Round(time.Millisecond)
	task, err := tasks.Create(owner.ID, list.ID, CreateTaskInput{Text: "water plants", Due: &due, Repeat: models.RepeatDaily})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	completed := true
	if _, err := tasks.Update(owner.ID, list.ID, task.ID, TaskPatch{Completed: &completed}); err != nil {
		t.Fatalf("complete task: %v", err)
	}

	broadcaster.reset()
	reminders.RunSweep(context.Background(), time.Now())

	advanced, err := repositories.Tasks.FindInList(list.ID, task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if advanced.Completed {
		t.Fatal("expected task reopened for the next occurrence")
	}
	wantDue := due.AddDate(0, 0, 1)
	if advanced.Due == nil || advanced.Due.UnixMilli() != wantDue.UnixMilli() {
		t.Fatalf("expected due advanced to %v, got %v", wantDue, advanced.Due)
	}
	if events := broadcaster.named(EventTaskUpdated); len(events) != 1 {
		t.Fatalf("expected one task:updated event on advance, got %d", len(events))
	}
}

func TestSweepAdvancesOverdueRecurringTaskEvenWhenNeverCompleted(t *testing.T) {
	t.Parallel()

	repositories, _, _, reminders := newSweepFixture(t)
	membership, tasks := newTestServices(repositories, NopBroadcaster{})
	owner := createTestUser(t, repositories, "owner@example.com")
	list, err := membership.CreateList(owner.ID, "Habits")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	due := time.Now().Add(-30 * time.Minute).Round(time.Millisecond)
	task, err := tasks.Create(owner.ID, list.ID, CreateTaskInput{Text: "missed it", Due: &due, Repeat: models.RepeatWeekly})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	reminders.RunSweep(context.Background(), time.Now())

	advanced, err := repositories.Tasks.FindInList(list.ID, task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	wantDue := due.AddDate(0, 0, 7)
	if advanced.Due == nil || advanced.Due.UnixMilli() != wantDue.UnixMilli() {
		t.Fatalf("expected overdue task advanced to %v, got %v", wantDue, advanced.Due)
	}
}

func TestSweepLeavesFutureAndUndatedRecurringTasksAlone(t *testing.T) {
	t.Parallel()

	repositories, broadcaster, _, reminders := newSweepFixture(t)
	membership, tasks := newTestServices(repositories, NopBroadcaster{})
	owner := createTestUser(t, repositories, "owner@example.com")
	list, err := membership.CreateList(owner.ID, "Habits")
	if err != nil {
		t.Fatalf("create list: %v", err)
	}

	futureDue := time.Now().Add(48 * time.Hour).Round(time.Millisecond)
	future, err := tasks.Create(owner.ID, list.ID, CreateTaskInput{Text: "future", Due: &futureDue, Repeat: models.RepeatDaily})
	if err != nil {
		t.Fatalf("create future task: %v", err)
	}
	undated, err := tasks.Create(owner.ID, list.ID, CreateTaskInput{Text: "undated", Repeat: models.RepeatDaily})
	if err != nil {
		t.Fatalf("create undated task: %v", err)
	}

	broadcaster.reset()
	reminders.RunSweep(context.Background(), time.Now())

	reloadedFuture, err := repositories.Tasks.FindInList(list.ID, future.ID)
	if err != nil {
		t.Fatalf("reload future: %v", err)
	}
	if reloadedFuture.Due == nil || reloadedFuture.Due.UnixMilli() != futureDue.UnixMilli() {
		t.Fatalf("expected future due untouched, got %v", reloadedFuture.Due)
	}
	reloadedUndated, err := repositories.Tasks.FindInList(list.ID, undated.ID)
	if err != nil {
		t.Fatalf("reload undated: %v", err)
	}
	if reloadedUndated.Due != nil {
		t.Fatalf("expected undated task untouched, got %v", reloadedUndated.Due)
	}
}

func TestNewReminderServiceClampsInterval(t *testing.T) {
	t.Parallel()

	repositories := openTestRepositories(t)
	reminders := NewReminderService(repositories, NopBroadcaster{}, &recordingPushSender{}, 0)
	if reminders.interval != defaultSweepInterval {
		t.Fatalf("expected default interval for zero, got %v", reminders.interval)
	}
	reminders = NewReminderService(repositories, NopBroadcaster{}, &recordingPushSender{}, 5*time.Minute)
	if reminders.interval != defaultSweepInterval {
		t.Fatalf("expected default interval for oversize, got %v", reminders.interval)
	}
	reminders = NewReminderService(repositories, NopBroadcaster{}, &recordingPushSender{}, 10*time.Second)
	if reminders.interval != 10*time.Second {
		t.Fatalf("expected explicit interval kept, got %v", reminders.interval)
	}
}
