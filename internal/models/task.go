package models

import "time"

const (
	RepeatNone    = ""
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
)

// NormalizeRepeat maps the empty string to no repetition and reports whether
// the value is one of the accepted intervals.
func NormalizeRepeat(value string) (string, bool) {
	switch value {
	case RepeatNone:
		return RepeatNone, true
	case RepeatDaily, RepeatWeekly, RepeatMonthly:
		return value, true
	default:
		return RepeatNone, false
	}
}

type Task struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ListID          uint       `gorm:"not null;index" json:"listId"`
	CreatorID       uint       `gorm:"not null" json:"creatorId"`
	Text            string     `gorm:"not null" json:"text"`
	Completed       bool       `gorm:"not null;default:false" json:"completed"`
	Due             *time.Time `json:"due"`
	Priority        string     `json:"priority"`
	Category        string     `json:"category"`
	Repeat          string     `gorm:"not null;default:''" json:"repeat"`
	LastCompletedAt *time.Time `json:"lastCompletedAt"`
	SortOrder       int        `gorm:"not null;default:0" json:"order"`
	CreatedAt       time.Time  `gorm:"not null" json:"createdAt"`
}

// Recurring reports the task's recurrence class. Recurring and one-shot tasks
// keep independent sort sequences.
func (task *Task) Recurring() bool {
	return task.Repeat != RepeatNone
}

// NextDue returns the occurrence after the current due instant. Advancing
// from the stored due rather than from the clock preserves time-of-day and
// avoids drift.
func (task *Task) NextDue() (time.Time, bool) {
	if task.Due == nil {
		return time.Time{}, false
	}
	switch task.Repeat {
	case RepeatDaily:
		return task.Due.AddDate(0, 0, 1), true
	case RepeatWeekly:
		return task.Due.AddDate(0, 0, 7), true
	case RepeatMonthly:
		return task.Due.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}
