package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/davrius/taskwell/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const defaultInviteTTL = 7 * 24 * time.Hour

type inviteClaims struct {
	ListID uint   `json:"lid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// InviteSigner mints and verifies the signed, time-limited tokens that carry
// a list invitation to an email address.
type InviteSigner struct {
	secretKey []byte
	ttl       time.Duration
}

func NewInviteSigner(secretKey []byte) *InviteSigner {
	return &InviteSigner{secretKey: secretKey, ttl: defaultInviteTTL}
}

func (signer *InviteSigner) Build(listID uint, email string, role models.Role) (string, error) {
	now := time.Now()
	claims := inviteClaims{
		ListID: listID,
		Email:  strings.ToLower(strings.TrimSpace(email)),
		Role:   role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(signer.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signer.secretKey)
}

// Invite is the decoded, validated content of an invite token.
type Invite struct {
	ListID uint
	Email  string
	Role   models.Role
}

func (signer *InviteSigner) Parse(rawToken string) (Invite, error) {
	claims := &inviteClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(rawToken), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return signer.secretKey, nil
	})
	if err != nil || !token.Valid {
		return Invite{}, fmt.Errorf("%w: invite signature or expiry check failed", ErrInvalidToken)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return Invite{}, fmt.Errorf("%w: invite expired", ErrInvalidToken)
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok || role == models.RoleOwner {
		return Invite{}, fmt.Errorf("%w: invite role %q", ErrInvalidToken, claims.Role)
	}
	if claims.ListID == 0 || claims.Email == "" {
		return Invite{}, fmt.Errorf("%w: invite payload incomplete", ErrInvalidToken)
	}

	return Invite{ListID: claims.ListID, Email: claims.Email, Role: role}, nil
}
