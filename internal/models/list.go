package models

import "time"

type List struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	OwnerID   uint         `gorm:"not null;index" json:"ownerId"`
	Members   []ListMember `gorm:"foreignKey:ListID" json:"members"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

// ListMember rows are owned by their list; they are never addressed outside
// of it. A list has exactly one owner-role member, always the creator.
type ListMember struct {
	ID     uint `gorm:"primaryKey" json:"-"`
	ListID uint `gorm:"not null;uniqueIndex:uidx_list_user" json:"-"`
	UserID uint `gorm:"not null;uniqueIndex:uidx_list_user" json:"userId"`
	Role   Role `gorm:"not null" json:"role"`
}

// MemberRole reports the role userID holds on the list. The registered owner
// counts as an owner-role member even without an explicit member row.
func (list *List) MemberRole(userID uint) (Role, bool) {
	if list.OwnerID == userID {
		return RoleOwner, true
	}
	for _, member := range list.Members {
		if member.UserID == userID {
			return member.Role, true
		}
	}
	return RoleViewer, false
}

// MemberIDs returns every member's user id, owner included, without
// duplicates.
func (list *List) MemberIDs() []uint {
	ids := make([]uint, 0, len(list.Members)+1)
	seen := map[uint]struct{}{list.OwnerID: {}}
	ids = append(ids, list.OwnerID)
	for _, member := range list.Members {
		if _, dup := seen[member.UserID]; dup {
			continue
		}
		seen[member.UserID] = struct{}{}
		ids = append(ids, member.UserID)
	}
	return ids
}
