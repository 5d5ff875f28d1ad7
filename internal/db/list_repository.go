package db

import (
	"github.com/davrius/taskwell/internal/models"
	"gorm.io/gorm"
)

type ListRepository struct {
	database *gorm.DB
}

func NewListRepository(database *gorm.DB) *ListRepository {
	return &ListRepository{database: database}
}

// CreateWithOwner persists the list and its owner member row in one
// transaction so the single-owner invariant holds from the first moment the
// list is visible.
func (repo *ListRepository) CreateWithOwner(list *models.List) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(list).Error; err != nil {
			return err
		}
		ownerMember := models.ListMember{
			ListID: list.ID,
			UserID: list.OwnerID,
			Role:   models.RoleOwner,
		}
		if err := tx.Create(&ownerMember).Error; err != nil {
			return err
		}
		list.Members = append(list.Members, ownerMember)
		return nil
	})
}

func (repo *ListRepository) FindByID(listID uint) (models.List, error) {
	var list models.List
	if err := repo.database.Preload("Members").First(&list, listID).Error; err != nil {
		return models.List{}, err
	}
	return list, nil
}

func (repo *ListRepository) ListForUser(userID uint) ([]models.List, error) {
	lists := make([]models.List, 0)
	if err := repo.database.
		Preload("Members").
		Joins("JOIN list_members ON list_members.list_id = lists.id").
		Where("list_members.user_id = ?", userID).
		Order("lists.created_at ASC").
		Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

func (repo *ListRepository) Rename(listID uint, name string) error {
	return repo.database.Model(&models.List{}).Where("id = ?", listID).Update("name", name).Error
}

// DeleteCascade removes the list together with everything scoped to it:
// member rows, tasks, and the tasks' reminder ledger entries.
func (repo *ListRepository) DeleteCascade(listID uint) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("task_id IN (?)", tx.Model(&models.Task{}).Select("id").Where("list_id = ?", listID)).
			Delete(&models.ReminderLedgerEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", listID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", listID).Delete(&models.ListMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.List{}, listID).Error
	})
}

// UpsertMember updates the member's role in place when present, appends
// otherwise. Owner-role protection is the membership service's concern.
func (repo *ListRepository) UpsertMember(listID uint, userID uint, role models.Role) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		var existing models.ListMember
		err := tx.Where("list_id = ? AND user_id = ?", listID, userID).First(&existing).Error
		if err == nil {
			return tx.Model(&existing).Update("role", role).Error
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		member := models.ListMember{ListID: listID, UserID: userID, Role: role}
		return tx.Create(&member).Error
	})
}

func (repo *ListRepository) RemoveMember(listID uint, userID uint) error {
	result := repo.database.Where("list_id = ? AND user_id = ?", listID, userID).Delete(&models.ListMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (repo *ListRepository) Members(listID uint) ([]models.ListMember, error) {
	members := make([]models.ListMember, 0)
	if err := repo.database.Where("list_id = ?", listID).Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
