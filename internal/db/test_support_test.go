package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/davrius/taskwell/internal/models"
)

func openTestRepositories(t *testing.T) *Repositories {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "taskwell-db-test.db")
	database, err := OpenSQLite(databasePath)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	return NewRepositories(database)
}

func createTestUser(t *testing.T, repositories *Repositories, email string) models.User {
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

func createTestList(t *testing.T, repositories *Repositories, ownerID uint, name string) models.List {
	t.Helper()
	list := models.List{Name: name, OwnerID: ownerID, CreatedAt: time.Now()}
	if err := repositories.Lists.CreateWithOwner(&list); err != nil {
		t.Fatalf("create list %s: %v", name, err)
	}
	return list
}

func createTestTask(t *testing.T, repositories *Repositories, listID uint, creatorID uint, text string, repeat string) models.Task {
	t.Helper()
	task := models.Task{
		ListID:    listID,
		CreatorID: creatorID,
		Text:      text,
		Repeat:    repeat,
		CreatedAt: time.Now(),
	}
	if err := repositories.Tasks.Create(&task); err != nil {
		t.Fatalf("create task %s: %v", text, err)
	}
	return task
}
