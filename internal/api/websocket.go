package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/davrius/taskwell/internal/models"
	"github.com/davrius/taskwell/internal/realtime"
	"github.com/davrius/taskwell/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Client→server frame names.
const (
	socketEventJoinList   = "join-list"
	socketEventLeaveList  = "leave-list"
	socketEventTaskCreate = "task:create"
	socketEventTaskUpdate = "task:update"
	socketEventTaskDelete = "task:delete"
)

type socketFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type socketListRef struct {
	ListID uint `json:"listId"`
}

type socketTaskRef struct {
	ListID uint `json:"listId"`
	TaskID uint `json:"taskId"`
}

type socketTaskCreate struct {
	ListID   uint       `json:"listId"`
	Text     string     `json:"text"`
	Due      *time.Time `json:"due"`
	Priority string     `json:"priority"`
	Category string     `json:"category"`
	Repeat   string     `json:"repeat"`
}

type socketTaskUpdate struct {
	ListID uint            `json:"listId"`
	TaskID uint            `json:"taskId"`
	Patch  json.RawMessage `json:"patch"`
}

// SocketUpgrade authenticates the handshake before the connection upgrades.
// A missing or invalid token rejects the connection outright; no room joins
// happen for unauthenticated sockets.
func (handler *Handler) SocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	rawToken := strings.TrimSpace(c.Query("token"))
	if rawToken == "" {
		rawToken = bearerToken(c)
	}
	user, err := handler.authenticateToken(rawToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	c.Locals(contextUserKey, user)
	return c.Next()
}

// HandleSocket runs one connection's read loop. Every mutation arriving over
// the channel re-runs the access evaluator inside the task service; the
// socket is not a trusted proxy for REST-side authorization.
func (handler *Handler) HandleSocket(conn *websocket.Conn) {
	user, ok := conn.Locals(contextUserKey).(*models.User)
	if !ok {
		conn.Close()
		return
	}

	session := handler.hub.Register(conn, user.ID)
	defer handler.hub.Unregister(session)

	for {
		frame := socketFrame{}
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		handler.dispatchSocketFrame(session, user, frame)
	}
}

func (handler *Handler) dispatchSocketFrame(session *realtime.Session, user *models.User, frame socketFrame) {
	switch frame.Event {
	case socketEventJoinList:
		ref := socketListRef{}
		if err := json.Unmarshal(frame.Data, &ref); err != nil {
			handler.socketError(session, "invalid join-list payload")
			return
		}
		// Membership is verified at join time; holding a list id is not
		// enough to subscribe to its broadcasts.
		if _, err := handler.membership.FindAuthorized(user.ID, ref.ListID, models.RoleViewer); err != nil {
			handler.socketError(session, err.Error())
			return
		}
		handler.hub.JoinList(session, ref.ListID)

	case socketEventLeaveList:
		ref := socketListRef{}
		if err := json.Unmarshal(frame.Data, &ref); err != nil {
			handler.socketError(session, "invalid leave-list payload")
			return
		}
		handler.hub.LeaveList(session, ref.ListID)

	case socketEventTaskCreate:
		payload := socketTaskCreate{}
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			handler.socketError(session, "invalid task:create payload")
			return
		}
		_, err := handler.tasks.Create(user.ID, payload.ListID, services.CreateTaskInput{
			Text:     payload.Text,
			Due:      payload.Due,
			Priority: payload.Priority,
			Category: payload.Category,
			Repeat:   payload.Repeat,
		})
		if err != nil {
			handler.socketError(session, err.Error())
		}

	case socketEventTaskUpdate:
		payload := socketTaskUpdate{}
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			handler.socketError(session, "invalid task:update payload")
			return
		}
		patch, err := parseTaskPatch(payload.Patch)
		if err != nil {
			handler.socketError(session, "invalid task:update patch")
			return
		}
		if _, err := handler.tasks.Update(user.ID, payload.ListID, payload.TaskID, patch); err != nil {
			handler.socketError(session, err.Error())
		}

	case socketEventTaskDelete:
		ref := socketTaskRef{}
		if err := json.Unmarshal(frame.Data, &ref); err != nil {
			handler.socketError(session, "invalid task:delete payload")
			return
		}
		if err := handler.tasks.Delete(user.ID, ref.ListID, ref.TaskID); err != nil {
			handler.socketError(session, err.Error())
		}

	default:
		handler.socketError(session, "unknown event "+frame.Event)
	}
}

func (handler *Handler) socketError(session *realtime.Session, message string) {
	handler.hub.SendTo(session, "error", fiber.Map{"message": message})
}
