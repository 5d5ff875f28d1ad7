package db

import (
	"time"

	"github.com/davrius/taskwell/internal/models"
	"gorm.io/gorm"
)

type TaskRepository struct {
	database *gorm.DB
}

func NewTaskRepository(database *gorm.DB) *TaskRepository {
	return &TaskRepository{database: database}
}

func (repo *TaskRepository) Create(task *models.Task) error {
	return repo.database.Create(task).Error
}

// FindInList loads a task only when it belongs to the given list. A task id
// that exists under a different list is indistinguishable from an absent one.
func (repo *TaskRepository) FindInList(listID uint, taskID uint) (models.Task, error) {
	var task models.Task
	if err := repo.database.Where("id = ? AND list_id = ?", taskID, listID).First(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (repo *TaskRepository) ListForList(listID uint) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	if err := repo.database.
		Where("list_id = ?", listID).
		Order("sort_order ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskWithListName joins a task with its list's display name for the
// cross-list overview endpoint.
type TaskWithListName struct {
	models.Task
	ListName string `json:"listName"`
}

func (repo *TaskRepository) ListForUser(userID uint) ([]TaskWithListName, error) {
	tasks := make([]TaskWithListName, 0)
	if err := repo.database.Model(&models.Task{}).
		Select("tasks.*, lists.name AS list_name").
		Joins("JOIN lists ON lists.id = tasks.list_id").
		Joins("JOIN list_members ON list_members.list_id = lists.id").
		Where("list_members.user_id = ?", userID).
		Order("tasks.sort_order ASC, tasks.id ASC").
		Scan(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// MaxOrder returns the highest sort position within one recurrence class of a
// list, zero when the class is empty.
func (repo *TaskRepository) MaxOrder(listID uint, recurring bool) (int, error) {
	query := repo.database.Model(&models.Task{}).Where("list_id = ?", listID)
	if recurring {
		query = query.Where("repeat <> ''")
	} else {
		query = query.Where("repeat = ''")
	}

	var maxOrder *int
	if err := query.Select("MAX(sort_order)").Scan(&maxOrder).Error; err != nil {
		return 0, err
	}
	if maxOrder == nil {
		return 0, nil
	}
	return *maxOrder, nil
}

func (repo *TaskRepository) UpdateFields(taskID uint, updates map[string]any) error {
	return repo.database.Model(&models.Task{}).Where("id = ?", taskID).Updates(updates).Error
}

func (repo *TaskRepository) Delete(listID uint, taskID uint) error {
	result := repo.database.Where("id = ? AND list_id = ?", taskID, listID).Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (repo *TaskRepository) UpdateOrders(listID uint, orders map[uint]int) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		for taskID, order := range orders {
			if err := tx.Model(&models.Task{}).
				Where("id = ? AND list_id = ?", taskID, listID).
				Update("sort_order", order).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// OpenWithDue returns incomplete tasks carrying a due instant, the reminder
// sweep's working set.
func (repo *TaskRepository) OpenWithDue() ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	if err := repo.database.
		Where("due IS NOT NULL AND completed = ?", false).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (repo *TaskRepository) Recurring() ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	if err := repo.database.Where("repeat <> ''").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (repo *TaskRepository) AdvanceRecurrence(taskID uint, nextDue time.Time) error {
	return repo.database.Model(&models.Task{}).Where("id = ?", taskID).Updates(map[string]any{
		"due":       nextDue,
		"completed": false,
	}).Error
}
