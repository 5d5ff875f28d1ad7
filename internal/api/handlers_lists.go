package api

import (
	"github.com/davrius/taskwell/internal/models"
	"github.com/gofiber/fiber/v2"
)

type listPayload struct {
	Name string `json:"name"`
}

type memberPayload struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
}

type sharePayload struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type acceptInvitePayload struct {
	Token string `json:"token"`
}

func (handler *Handler) CreateList(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	payload := listPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	list, err := handler.membership.CreateList(user.ID, payload.Name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(list)
}

func (handler *Handler) GetLists(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	lists, err := handler.membership.ListsForUser(user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(lists)
}

func (handler *Handler) RenameList(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}

	payload := listPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	list, err := handler.membership.RenameList(user.ID, listID, payload.Name)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

func (handler *Handler) DeleteList(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}

	if err := handler.membership.DeleteList(user.ID, listID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) GetMembers(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}

	members, err := handler.membership.Members(user.ID, listID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(members)
}

func (handler *Handler) AddOrUpdateMember(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}

	payload := memberPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	role, validRole := models.ParseRole(payload.Role)
	if !validRole {
		return apiError(c, fiber.StatusBadRequest, "invalid role")
	}

	list, err := handler.membership.AddOrUpdateMember(user.ID, listID, payload.UserID, role)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

func (handler *Handler) RemoveMember(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}
	targetUserID, err := parseIDParam(c, "userId")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := handler.membership.RemoveMember(user.ID, listID, targetUserID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) ShareList(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}

	payload := sharePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	role, validRole := models.ParseRole(payload.Role)
	if !validRole {
		return apiError(c, fiber.StatusBadRequest, "invalid role")
	}

	result, err := handler.membership.Share(user.ID, listID, payload.Email, role)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

func (handler *Handler) AcceptInvite(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	payload := acceptInvitePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	list, err := handler.membership.AcceptInvite(user.ID, payload.Token)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}
