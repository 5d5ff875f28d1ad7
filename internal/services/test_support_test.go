package services

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/models"
)

func openTestRepositories(t *testing.T) *db.Repositories {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "taskwell-services-test.db")
	database, err := db.OpenSQLite(databasePath)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return db.NewRepositories(database)
}

func createTestUser(t *testing.T, repositories *db.Repositories, email string) models.User {
	t.Helper()
	user := models.User{
		Email:        email,
		Username:     email,
		PasswordHash: "not-a-real-hash",
		CreatedAt:    time.Now(),
	}
	if err := repositories.Users.Create(&user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func newTestServices(repositories *db.Repositories, broadcaster Broadcaster) (*MembershipService, *TaskService) {
	invites := NewInviteSigner([]byte("services-test-secret"))
	membership := NewMembershipService(repositories.Lists, repositories.Users, invites, broadcaster)
	tasks := NewTaskService(repositories.Tasks, repositories.Ledger, membership, broadcaster)
	return membership, tasks
}

type recordedEvent struct {
	Room    string
	Event   string
	Payload any
}

// recordingBroadcaster captures delivered events for assertions instead of
// fanning them out.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (broadcaster *recordingBroadcaster) BroadcastToList(listID uint, event string, payload any) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	broadcaster.events = append(broadcaster.events, recordedEvent{
		Room:    fmt.Sprintf("list:%d", listID),
		Event:   event,
		Payload: payload,
	})
}

func (broadcaster *recordingBroadcaster) SendToUser(userID uint, event string, payload any) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	broadcaster.events = append(broadcaster.events, recordedEvent{
		Room:    fmt.Sprintf("user:%d", userID),
		Event:   event,
		Payload: payload,
	})
}

func (broadcaster *recordingBroadcaster) named(event string) []recordedEvent {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	matched := make([]recordedEvent, 0)
	for _, recorded := range broadcaster.events {
		if recorded.Event == event {
			matched = append(matched, recorded)
		}
	}
	return matched
}

func (broadcaster *recordingBroadcaster) reset() {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	broadcaster.events = nil
}
