package db

import (
	"time"

	"github.com/davrius/taskwell/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository struct {
	database *gorm.DB
}

func NewLedgerRepository(database *gorm.DB) *LedgerRepository {
	return &LedgerRepository{database: database}
}

// Claim records that a reminder for (task, due-instant, stage) is being sent.
// It is a single conditional insert riding on the table's unique index: the
// first claimer wins, every later attempt reports false with no side effect.
func (repo *LedgerRepository) Claim(taskID uint, dueAt time.Time, stage string) (bool, error) {
	entry := models.ReminderLedgerEntry{
		TaskID: taskID,
		DueAt:  dueAt,
		Stage:  stage,
		SentAt: time.Now().UTC(),
	}
	result := repo.database.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}, {Name: "due_at"}, {Name: "stage"}},
		DoNothing: true,
	}).Create(&entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteForTask drops every claimed slot of a task. Called when the due
// instant changes so the new instant starts with a clean set of stages.
func (repo *LedgerRepository) DeleteForTask(taskID uint) error {
	return repo.database.Where("task_id = ?", taskID).Delete(&models.ReminderLedgerEntry{}).Error
}

// PruneBefore clears entries older than the retention cutoff. Rolling
// cleanup, not tied to any task's current due date.
func (repo *LedgerRepository) PruneBefore(cutoff time.Time) error {
	return repo.database.Where("sent_at < ?", cutoff).Delete(&models.ReminderLedgerEntry{}).Error
}

func (repo *LedgerRepository) CountForTask(taskID uint) (int64, error) {
	var count int64
	if err := repo.database.Model(&models.ReminderLedgerEntry{}).
		Where("task_id = ?", taskID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
