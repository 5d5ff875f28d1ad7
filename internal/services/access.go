package services

import (
	"fmt"

	"github.com/davrius/taskwell/internal/models"
)

// Authorize decides whether userID may act on the list at the required rank.
// Pure: no I/O, called synchronously ahead of every membership or task
// mutation, on the REST path and again on the realtime path.
//
// The registered owner is always allowed. The owner is granted member status
// at list creation, so an explicit member row is not required for the check.
func Authorize(userID uint, list *models.List, required models.Role) error {
	if list.OwnerID == userID {
		return nil
	}
	for _, member := range list.Members {
		if member.UserID != userID {
			continue
		}
		if member.Role >= required {
			return nil
		}
		return fmt.Errorf("%w: insufficient permission", ErrForbidden)
	}
	return fmt.Errorf("%w: not a member", ErrForbidden)
}
