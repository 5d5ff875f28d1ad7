package services

import (
	"errors"
	"testing"

	"github.com/davrius/taskwell/internal/models"
)

func TestAuthorizeOwnerAlwaysAllowed(t *testing.T) {
	t.Parallel()

	list := &models.List{ID: 1, OwnerID: 10}
	for _, required := range []models.Role{models.RoleViewer, models.RoleEditor, models.RoleOwner} {
		if err := Authorize(10, list, required); err != nil {
			t.Fatalf("expected owner allowed at %s, got %v", required, err)
		}
	}
}

func TestAuthorizeRankOrdering(t *testing.T) {
	t.Parallel()

	list := &models.List{
		ID:      1,
		OwnerID: 10,
		Members: []models.ListMember{
			{ListID: 1, UserID: 20, Role: models.RoleViewer},
			{ListID: 1, UserID: 30, Role: models.RoleEditor},
		},
	}

	tests := []struct {
		name     string
		userID   uint
		required models.Role
		allowed  bool
	}{
		{name: "viewer reads", userID: 20, required: models.RoleViewer, allowed: true},
		{name: "viewer cannot edit", userID: 20, required: models.RoleEditor, allowed: false},
		{name: "viewer cannot administer", userID: 20, required: models.RoleOwner, allowed: false},
		{name: "editor reads", userID: 30, required: models.RoleViewer, allowed: true},
		{name: "editor edits", userID: 30, required: models.RoleEditor, allowed: true},
		{name: "editor cannot administer", userID: 30, required: models.RoleOwner, allowed: false},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			err := Authorize(testCase.userID, list, testCase.required)
			if testCase.allowed && err != nil {
				t.Fatalf("expected allowed, got %v", err)
			}
			if !testCase.allowed {
				if !errors.Is(err, ErrForbidden) {
					t.Fatalf("expected ErrForbidden, got %v", err)
				}
			}
		})
	}
}

func TestAuthorizeNonMemberForbidden(t *testing.T) {
	t.Parallel()

	list := &models.List{
		ID:      1,
		OwnerID: 10,
		Members: []models.ListMember{
			{ListID: 1, UserID: 10, Role: models.RoleOwner},
		},
	}
	if err := Authorize(99, list, models.RoleViewer); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-member, got %v", err)
	}
}
