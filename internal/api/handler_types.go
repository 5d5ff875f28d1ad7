package api

import (
	"time"

	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/realtime"
	"github.com/davrius/taskwell/internal/services"
	"github.com/golang-jwt/jwt/v5"
)

const (
	contextUserKey = "current_user"

	authTokenTTL = 7 * 24 * time.Hour
)

type Handler struct {
	repositories *db.Repositories
	membership   *services.MembershipService
	tasks        *services.TaskService
	push         *services.PushService
	hub          *realtime.Hub
	secretKey    []byte
}

func NewHandler(repositories *db.Repositories, hub *realtime.Hub, pushService *services.PushService, secretKey []byte) *Handler {
	invites := services.NewInviteSigner(secretKey)
	membership := services.NewMembershipService(repositories.Lists, repositories.Users, invites, hub)
	tasks := services.NewTaskService(repositories.Tasks, repositories.Ledger, membership, hub)

	return &Handler{
		repositories: repositories,
		membership:   membership,
		tasks:        tasks,
		push:         pushService,
		hub:          hub,
		secretKey:    secretKey,
	}
}

type authClaims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}
