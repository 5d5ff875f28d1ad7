package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/models"
	"gorm.io/gorm"
)

// MembershipService owns lists and their member sets. Every role mutation
// passes through here, behind the access evaluator.
type MembershipService struct {
	lists       *db.ListRepository
	users       *db.UserRepository
	invites     *InviteSigner
	broadcaster Broadcaster
}

func NewMembershipService(lists *db.ListRepository, users *db.UserRepository, invites *InviteSigner, broadcaster Broadcaster) *MembershipService {
	return &MembershipService{lists: lists, users: users, invites: invites, broadcaster: broadcaster}
}

func (service *MembershipService) CreateList(ownerID uint, name string) (models.List, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return models.List{}, fmt.Errorf("%w: list name required", ErrInvalidInput)
	}

	list := models.List{
		Name:      trimmedName,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}
	if err := service.lists.CreateWithOwner(&list); err != nil {
		return models.List{}, err
	}
	return list, nil
}

func (service *MembershipService) FindAuthorized(actorID uint, listID uint, required models.Role) (models.List, error) {
	list, err := service.lists.FindByID(listID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.List{}, fmt.Errorf("%w: list %d", ErrNotFound, listID)
		}
		return models.List{}, err
	}
	if err := Authorize(actorID, &list, required); err != nil {
		return models.List{}, err
	}
	return list, nil
}

func (service *MembershipService) ListsForUser(userID uint) ([]models.List, error) {
	return service.lists.ListForUser(userID)
}

func (service *MembershipService) RenameList(actorID uint, listID uint, name string) (models.List, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return models.List{}, fmt.Errorf("%w: list name required", ErrInvalidInput)
	}

	list, err := service.FindAuthorized(actorID, listID, models.RoleOwner)
	if err != nil {
		return models.List{}, err
	}
	if err := service.lists.Rename(list.ID, trimmedName); err != nil {
		return models.List{}, err
	}
	list.Name = trimmedName

	service.broadcaster.BroadcastToList(list.ID, EventListUpdated, list)
	return list, nil
}

// DeleteList cascades over tasks and ledger entries before the list row goes
// away, and only announces list:deleted once the cascade committed, so no
// client observes task events for a vanished list.
func (service *MembershipService) DeleteList(actorID uint, listID uint) error {
	list, err := service.FindAuthorized(actorID, listID, models.RoleOwner)
	if err != nil {
		return err
	}
	if err := service.lists.DeleteCascade(list.ID); err != nil {
		return err
	}

	service.broadcaster.BroadcastToList(list.ID, EventListDeleted, map[string]any{"listId": list.ID})
	return nil
}

func (service *MembershipService) Members(actorID uint, listID uint) ([]models.ListMember, error) {
	list, err := service.FindAuthorized(actorID, listID, models.RoleViewer)
	if err != nil {
		return nil, err
	}
	return service.lists.Members(list.ID)
}

// AddOrUpdateMember grants or changes a role. The list's owner can never be
// retargeted through this path; owner reassignment is not an operation the
// system has.
func (service *MembershipService) AddOrUpdateMember(actorID uint, listID uint, targetUserID uint, role models.Role) (models.List, error) {
	if role == models.RoleOwner {
		return models.List{}, fmt.Errorf("%w: owner role cannot be granted", ErrInvalidOperation)
	}

	list, err := service.FindAuthorized(actorID, listID, models.RoleOwner)
	if err != nil {
		return models.List{}, err
	}
	if targetUserID == list.OwnerID {
		return models.List{}, fmt.Errorf("%w: owner role cannot be changed", ErrInvalidOperation)
	}
	if _, err := service.users.FindByID(targetUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.List{}, fmt.Errorf("%w: user %d", ErrNotFound, targetUserID)
		}
		return models.List{}, err
	}

	if err := service.lists.UpsertMember(list.ID, targetUserID, role); err != nil {
		return models.List{}, err
	}

	updated, err := service.lists.FindByID(list.ID)
	if err != nil {
		return models.List{}, err
	}

	service.broadcaster.BroadcastToList(updated.ID, EventListShared, updated)
	service.broadcaster.SendToUser(targetUserID, EventListShared, updated)
	return updated, nil
}

func (service *MembershipService) RemoveMember(actorID uint, listID uint, targetUserID uint) error {
	list, err := service.FindAuthorized(actorID, listID, models.RoleOwner)
	if err != nil {
		return err
	}
	if targetUserID == list.OwnerID {
		return fmt.Errorf("%w: owner cannot be removed", ErrInvalidOperation)
	}

	if err := service.lists.RemoveMember(list.ID, targetUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: user %d is not a member", ErrNotFound, targetUserID)
		}
		return err
	}

	service.broadcaster.BroadcastToList(list.ID, EventListMemberRemoved, map[string]any{
		"listId": list.ID,
		"userId": targetUserID,
	})
	service.broadcaster.SendToUser(targetUserID, EventListMemberRemoved, map[string]any{
		"listId": list.ID,
		"userId": targetUserID,
	})
	return nil
}

// ShareResult reports what sharing did: an immediate grant when the address
// already has an account, otherwise a pending invite token for delivery out
// of band.
type ShareResult struct {
	List        *models.List `json:"list,omitempty"`
	InviteToken string       `json:"inviteToken,omitempty"`
}

// Share grants email the given role. The share entry point only hands out
// viewer or editor.
func (service *MembershipService) Share(actorID uint, listID uint, email string, role models.Role) (ShareResult, error) {
	if role != models.RoleViewer && role != models.RoleEditor {
		return ShareResult{}, fmt.Errorf("%w: share role must be viewer or editor", ErrInvalidOperation)
	}

	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if normalizedEmail == "" {
		return ShareResult{}, fmt.Errorf("%w: email required", ErrInvalidInput)
	}

	target, err := service.users.FindByNormalizedEmail(normalizedEmail)
	if err == nil {
		updated, addErr := service.AddOrUpdateMember(actorID, listID, target.ID, role)
		if addErr != nil {
			return ShareResult{}, addErr
		}
		return ShareResult{List: &updated}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ShareResult{}, err
	}

	// No account for that address yet: authorize, then mint a token the
	// address can redeem after signup.
	list, err := service.FindAuthorized(actorID, listID, models.RoleOwner)
	if err != nil {
		return ShareResult{}, err
	}
	token, err := service.invites.Build(list.ID, normalizedEmail, role)
	if err != nil {
		return ShareResult{}, err
	}
	return ShareResult{InviteToken: token}, nil
}

// AcceptInvite redeems a signed invite token for the authenticated user. The
// token's target email must match the caller's address case-insensitively; a
// token minted for one address is not redeemable by another account.
func (service *MembershipService) AcceptInvite(userID uint, rawToken string) (models.List, error) {
	invite, err := service.invites.Parse(rawToken)
	if err != nil {
		return models.List{}, err
	}

	user, err := service.users.FindByID(userID)
	if err != nil {
		return models.List{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(user.Email), invite.Email) {
		return models.List{}, fmt.Errorf("%w: invite addressed to %s", ErrEmailMismatch, invite.Email)
	}

	list, err := service.lists.FindByID(invite.ListID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.List{}, fmt.Errorf("%w: list %d", ErrNotFound, invite.ListID)
		}
		return models.List{}, err
	}
	if _, isMember := list.MemberRole(user.ID); isMember {
		return models.List{}, fmt.Errorf("%w: already in list %d", ErrAlreadyMember, list.ID)
	}

	if err := service.lists.UpsertMember(list.ID, user.ID, invite.Role); err != nil {
		return models.List{}, err
	}

	updated, err := service.lists.FindByID(list.ID)
	if err != nil {
		return models.List{}, err
	}

	service.broadcaster.BroadcastToList(updated.ID, EventListMemberJoined, map[string]any{
		"listId":   updated.ID,
		"userId":   user.ID,
		"username": user.Username,
		"role":     invite.Role.String(),
	})
	return updated, nil
}
