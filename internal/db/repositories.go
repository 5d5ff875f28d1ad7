package db

import "gorm.io/gorm"

type Repositories struct {
	Users         *UserRepository
	Lists         *ListRepository
	Tasks         *TaskRepository
	Ledger        *LedgerRepository
	Subscriptions *SubscriptionRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(database),
		Lists:         NewListRepository(database),
		Tasks:         NewTaskRepository(database),
		Ledger:        NewLedgerRepository(database),
		Subscriptions: NewSubscriptionRepository(database),
	}
}
