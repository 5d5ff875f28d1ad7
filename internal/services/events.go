package services

// Server→client realtime event names.
const (
	EventTaskCreated       = "task:created"
	EventTaskUpdated       = "task:updated"
	EventTaskDeleted       = "task:deleted"
	EventTaskReminder      = "task:reminder"
	EventListShared        = "list:shared"
	EventListMemberJoined  = "list:memberJoined"
	EventListMemberRemoved = "list:memberRemoved"
	EventListUpdated       = "list:updated"
	EventListDeleted       = "list:deleted"
)

// Broadcaster is the fan-out surface the stores and the scheduler emit
// through. The realtime hub implements it; keeping it an interface here
// breaks the scheduler↔channel-manager cycle, both sides depend on this
// contract instead of on each other.
type Broadcaster interface {
	BroadcastToList(listID uint, event string, payload any)
	SendToUser(userID uint, event string, payload any)
}

// NopBroadcaster satisfies Broadcaster with no delivery, for tests and for
// tools that run the stores without a realtime server.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToList(uint, string, any) {}
func (NopBroadcaster) SendToUser(uint, string, any)      {}
