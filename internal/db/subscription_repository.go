package db

import (
	"github.com/davrius/taskwell/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	database *gorm.DB
}

func NewSubscriptionRepository(database *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{database: database}
}

// Upsert registers a push endpoint, refreshing the keys when the
// (user, endpoint) pair already exists.
func (repo *SubscriptionRepository) Upsert(subscription *models.PushSubscription) error {
	return repo.database.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh_key", "auth_key"}),
	}).Create(subscription).Error
}

func (repo *SubscriptionRepository) ListForUsers(userIDs []uint) ([]models.PushSubscription, error) {
	subscriptions := make([]models.PushSubscription, 0)
	if len(userIDs) == 0 {
		return subscriptions, nil
	}
	if err := repo.database.Where("user_id IN ?", userIDs).Find(&subscriptions).Error; err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (repo *SubscriptionRepository) DeleteByID(subscriptionID uint) error {
	return repo.database.Delete(&models.PushSubscription{}, subscriptionID).Error
}
