// Package web provides the HTTP handlers of the automation management API.
package web

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/agencykit/automation/pkg/models"
	"github.com/agencykit/automation/pkg/services"
)

type APIHandlers struct {
	automations *services.AutomationService
}

func NewAPIHandlers(automations *services.AutomationService) *APIHandlers {
	return &APIHandlers{automations: automations}
}

func (h *APIHandlers) GetAutomations(c fiber.Ctx) error {
	automations, err := h.automations.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"automations": automations})
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	automation, err := h.automations.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) CreateAutomation(c fiber.Ctx) error {
	var automation models.Automation
	if err := c.Bind().JSON(&automation); err != nil {
		return badRequest(c, "Invalid automation payload: "+err.Error())
	}

	created, err := h.automations.Create(c.Context(), &automation)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var update models.Automation
	if err := c.Bind().JSON(&update); err != nil {
		return badRequest(c, "Invalid automation payload: "+err.Error())
	}

	updated, err := h.automations.Update(c.Context(), id, &update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	if err := h.automations.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ActivateAutomation(c fiber.Ctx) error {
	automation, err := h.automations.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) PauseAutomation(c fiber.Ctx) error {
	automation, err := h.automations.Pause(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) ResumeAutomation(c fiber.Ctx) error {
	automation, err := h.automations.Resume(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(automation)
}

// GetConditions serves the condition catalog that filter builder UIs render.
func (h *APIHandlers) GetConditions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"conditions": h.automations.Conditions()})
}

// PreviewMatch returns the per-rule diagnostic tree for one contact against
// one automation's filter.
func (h *APIHandlers) PreviewMatch(c fiber.Ctx) error {
	id := c.Params("id")
	contactID := c.Query("contact_id")

	result, err := h.automations.PreviewMatch(c.Context(), id, contactID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// GetMatchCount reports how many contacts currently match the filter.
func (h *APIHandlers) GetMatchCount(c fiber.Ctx) error {
	count, err := h.automations.MatchCount(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"matched": count})
}

// PreviewPacing shows the day buckets a batch of the given size would get.
func (h *APIHandlers) PreviewPacing(c fiber.Ctx) error {
	count := 0

	if countStr := c.Query("count"); countStr != "" {
		parsed, err := strconv.Atoi(countStr)
		if err != nil {
			return badRequest(c, "Invalid count: "+err.Error())
		}

		count = parsed
	}

	buckets, err := h.automations.PacingPreview(c.Context(), c.Params("id"), count)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"buckets": buckets})
}

func (h *APIHandlers) GetEnrollments(c fiber.Ctx) error {
	enrollments, err := h.automations.Enrollments(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"enrollments": enrollments})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, ok := h.automations.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if !ok {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
	})
}
