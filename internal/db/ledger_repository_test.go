package db

import (
	"testing"
	"time"

	"github.com/davrius/taskwell/internal/models"
)

func TestClaimFirstWinnerOnly(t *testing.T) {
	t.Parallel()

	repositories := openTestRepositories(t)
	owner := createTestUser(t, repositories, "owner@example.com")
	list := createTestList(t, repositories, owner.ID, "Reminders")
	task := createTestTask(t, repositories, list.ID, owner.ID, "deadline", models.RepeatNone)

	due := time.Now().Add(15 * time.Minute).Round(time.Millisecond)

	claimed, err := repositories.Ledger.Claim(task.ID, due, models.Stage15Min)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to win")
	}

	claimed, err = repositories.Ledger.Claim(task.ID, due, models.Stage15Min)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim for the same slot to lose")
	}

	// A different stage of the same instant is its own slot.
	claimed, err = repositories.Ledger.Claim(task.ID, due, models.Stage5Min)
	if err != nil {
		t.Fatalf("other stage claim: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim for a different stage to win")
	}

	// So is the same stage of a different instant.
	claimed, err = repositories.Ledger.Claim(task.ID, due.Add(time.Hour), models.Stage15Min)
	if err != nil {
		t.Fatalf("other instant claim: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim for a different instant to win")
	}

	count, err := repositories.Ledger.CountForTask(task.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", count)
	}
}

func TestDeleteForTaskClearsOnlyThatTask(t *testing.T) {
	t.Parallel()

	repositories := openTestRepositories(t)
	owner := createTestUser(t, repositories, "owner@example.com")
	list := createTestList(t, repositories, owner.ID, "Reminders")
	first := createTestTask(t, repositories, list.ID, owner.ID, "first", models.RepeatNone)
	second := createTestTask(t, repositories, list.ID, owner.ID, "second", models.RepeatNone)

	due := time.Now().Add(15 * time.Minute)
	if _, err := repositories.Ledger.Claim(first.ID, due, models.Stage15Min); err != nil {
		t.Fatalf("claim first: %v", err)
	}
	if _, err := repositories.Ledger.Claim(second.ID, due, models.Stage15Min); err != nil {
		t.Fatalf("claim second: %v", err)
	}

	if err := repositories.Ledger.DeleteForTask(first.ID); err != nil {
		t.Fatalf("delete for task: %v", err)
	}

	count, err := repositories.Ledger.CountForTask(first.ID)
	if err != nil {
		t.Fatalf("count first: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected first task's entries gone, got %d", count)
	}
	count, err = repositories.Ledger.CountForTask(second.ID)
	if err != nil {
		t.Fatalf("count second: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected second task's entry kept, got %d", count)
	}
}

func TestPruneBefore(t *testing.T) {
	t.Parallel()

	repositories := openTestRepositories(t)
	owner := createTestUser(t, repositories, "owner@example.com")
	list := createTestList(t, repositories, owner.ID, "Reminders")
	task := createTestTask(t, repositories, list.ID, owner.ID, "deadline", models.RepeatNone)

	due := time.Now().Add(15 * time.Minute)
	if _, err := repositories.Ledger.Claim(task.ID, due, models.Stage15Min); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Cutoff in the past keeps the fresh entry.
	if err := repositories.Ledger.PruneBefore(time.Now().Add(-48 * time.Hour)); err != nil {
		t.Fatalf("prune with old cutoff: %v", err)
	}
	count, err := repositories.Ledger.CountForTask(task.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected entry kept, got %d", count)
	}

	// Cutoff ahead of the send instant removes it, and the slot can be
	// claimed again.
	if err := repositories.Ledger.PruneBefore(time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("prune with future cutoff: %v", err)
	}
	count, err = repositories.Ledger.CountForTask(task.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected entry pruned, got %d", count)
	}

	claimed, err := repositories.Ledger.Claim(task.ID, due, models.Stage15Min)
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if !claimed {
		t.Fatal("expected pruned slot claimable again")
	}
}
