package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/service"
	"github.com/datasynth/api/pkg/response"
)

type SchemaHandler struct {
	service   *service.SchemaService
	validator *validator.Validate
}

func NewSchemaHandler(svc *service.SchemaService, v *validator.Validate) *SchemaHandler {
	return &SchemaHandler{service: svc, validator: v}
}

// Save handles POST /api/schemas
// @Summary      Save schema definition
// @Tags         Schemas
// @Accept       json
// @Produce      json
// @Param        request body model.SaveSchemaRequest true "Schema to store"
// @Success      201 {object} model.SaveSchemaResponse
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/schemas [post]
func (h *SchemaHandler) Save(c *fiber.Ctx) error {
	var req model.SaveSchemaRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Save(c.UserContext(), &req)
	if err != nil {
		return writeError(c, err)
	}

	return response.Created(c, result)
}

// Latest handles GET /api/schemas/latest
// @Summary      Stream the most recently saved schema
// @Tags         Schemas
// @Produce      json
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/schemas/latest [get]
func (h *SchemaHandler) Latest(c *fiber.Ctx) error {
	path, err := h.service.Latest()
	if err != nil {
		return writeError(c, err)
	}

	c.Type("json")
	return c.SendFile(path)
}
