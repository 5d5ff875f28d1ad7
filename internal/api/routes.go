package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/vapid", handler.GetVAPIDPublicKey)

	auth := app.Group("/auth")
	auth.Post("/signup", handler.Signup)
	auth.Post("/login", handler.Login)

	lists := app.Group("/lists", handler.AuthRequired)
	lists.Post("", handler.CreateList)
	lists.Get("", handler.GetLists)
	lists.Put("/:id", handler.RenameList)
	lists.Delete("/:id", handler.DeleteList)

	lists.Get("/:id/members", handler.GetMembers)
	lists.Post("/:id/members", handler.AddOrUpdateMember)
	lists.Delete("/:id/members/:userId", handler.RemoveMember)
	lists.Post("/:id/share", handler.ShareList)

	lists.Get("/:id/tasks", handler.GetTasks)
	lists.Post("/:id/tasks", handler.CreateTask)
	lists.Put("/:id/tasks/reorder", handler.ReorderTasks)
	lists.Put("/:id/tasks/:taskId", handler.UpdateTask)
	lists.Delete("/:id/tasks/:taskId", handler.DeleteTask)

	app.Get("/tasks/all", handler.AuthRequired, handler.GetAllTasks)
	app.Post("/invites/accept", handler.AuthRequired, handler.AcceptInvite)
	app.Post("/subscriptions", handler.AuthRequired, handler.UpsertSubscription)

	app.Use("/ws", handler.SocketUpgrade)
	app.Get("/ws", websocket.New(handler.HandleSocket))
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
