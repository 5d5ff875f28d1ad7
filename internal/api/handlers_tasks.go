package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/davrius/taskwell/internal/services"
	"github.com/gofiber/fiber/v2"
)

type createTaskPayload struct {
	Text     string     `json:"text"`
	Due      *time.Time `json:"due"`
	Priority string     `json:"priority"`
	Category string     `json:"category"`
	Repeat   string     `json:"repeat"`
}

type reorderPayload struct {
	OrderedIDs []uint `json:"orderedIds"`
}

func (handler *Handler) GetTasks(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}

	tasks, err := handler.tasks.List(user.ID, listID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(tasks)
}

func (handler *Handler) GetAllTasks(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	tasks, err := handler.tasks.ListAcrossLists(user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(tasks)
}

func (handler *Handler) CreateTask(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}

	payload := createTaskPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	task, err := handler.tasks.Create(user.ID, listID, services.CreateTaskInput{
		Text:     payload.Text,
		Due:      payload.Due,
		Priority: payload.Priority,
		Category: payload.Category,
		Repeat:   payload.Repeat,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (handler *Handler) UpdateTask(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}
	taskID, err := parseIDParam(c, "taskId")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid task id")
	}

	patch, err := parseTaskPatch(c.Body())
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	task, err := handler.tasks.Update(user.ID, listID, taskID, patch)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(task)
}

func (handler *Handler) DeleteTask(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}
	taskID, err := parseIDParam(c, "taskId")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid task id")
	}

	if err := handler.tasks.Delete(user.ID, listID, taskID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (handler *Handler) ReorderTasks(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	listID, err := parseIDParam(c, "id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid list id")
	}

	payload := reorderPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	tasks, err := handler.tasks.Reorder(user.ID, listID, payload.OrderedIDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(tasks)
}

// parseTaskPatch decodes a partial update. Only keys present in the body are
// touched; "due": null clears the due date, an absent "due" leaves it alone.
func parseTaskPatch(body []byte) (services.TaskPatch, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return services.TaskPatch{}, err
	}

	patch := services.TaskPatch{}
	if raw, present := fields["text"]; present {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return services.TaskPatch{}, err
		}
		patch.Text = &text
	}
	if raw, present := fields["completed"]; present {
		var completed bool
		if err := json.Unmarshal(raw, &completed); err != nil {
			return services.TaskPatch{}, err
		}
		patch.Completed = &completed
	}
	if raw, present := fields["priority"]; present {
		var priority string
		if err := json.Unmarshal(raw, &priority); err != nil {
			return services.TaskPatch{}, err
		}
		patch.Priority = &priority
	}
	if raw, present := fields["category"]; present {
		var category string
		if err := json.Unmarshal(raw, &category); err != nil {
			return services.TaskPatch{}, err
		}
		patch.Category = &category
	}
	if raw, present := fields["repeat"]; present {
		var repeat string
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			repeat = ""
		} else if err := json.Unmarshal(raw, &repeat); err != nil {
			return services.TaskPatch{}, err
		}
		patch.Repeat = &repeat
	}
	if raw, present := fields["due"]; present {
		patch.DueSet = true
		if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			var due time.Time
			if err := json.Unmarshal(raw, &due); err != nil {
				return services.TaskPatch{}, err
			}
			patch.Due = &due
		}
	}
	return patch, nil
}
