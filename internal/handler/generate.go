package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
	"github.com/datasynth/api/internal/service"
	"github.com/datasynth/api/pkg/response"
)

type GenerateHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
}

func NewGenerateHandler(svc *service.GenerationService, v *validator.Validate) *GenerateHandler {
	return &GenerateHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/generate
// @Summary      Submit generation job
// @Description  Validate a table schema and queue an asynchronous job that synthesizes record_count records
// @Tags         Generate
// @Accept       json
// @Produce      json
// @Param        request body model.GenerateRequest true "Generation request"
// @Success      202 {object} model.GenerateResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/generate [post]
func (h *GenerateHandler) Submit(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.UserContext(), &req)
	if err != nil {
		return writeError(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/generate/status/:jobId
// @Summary      Get generation job status
// @Description  Progress while the job runs, the aggregated result on SUCCESS or the error on FAILURE
// @Tags         Generate
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobStatusResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} model.JobStatusResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/generate/status/{jobId} [get]
func (h *GenerateHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Status(c.UserContext(), jobID)
	if err != nil {
		if errors.Is(err, errs.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(model.JobStatusResponse{
				JobID:  jobID,
				Status: model.JobStatusNotFound,
			})
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
