package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datasynth/api/internal/service"
	"github.com/datasynth/api/pkg/response"
)

type ArtifactHandler struct {
	service *service.ArtifactService
}

func NewArtifactHandler(svc *service.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{service: svc}
}

// Latest handles GET /api/artifacts/latest?type=csv|json|parquet|schema
// @Summary      Stream the latest artifact of a type
// @Tags         Artifacts
// @Param        type query string true "csv, json, parquet or schema"
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/artifacts/latest [get]
func (h *ArtifactHandler) Latest(c *fiber.Ctx) error {
	kind := c.Query("type")
	if kind == "" {
		return response.ValidationError(c, "Query parameter 'type' is required", nil)
	}

	artifact, err := h.service.Latest(kind)
	if err != nil {
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, artifact.ContentType)
	c.Set("X-Artifact-Name", artifact.Name)
	return c.SendFile(artifact.Path)
}

// Download handles GET /api/artifacts/download/:filename
// @Summary      Download a generated file
// @Tags         Artifacts
// @Param        filename path string true "File name"
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/artifacts/download/{filename} [get]
func (h *ArtifactHandler) Download(c *fiber.Ctx) error {
	artifact, err := h.service.Resolve(c.Params("filename"))
	if err != nil {
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, artifact.ContentType)
	return c.Download(artifact.Path, artifact.Name)
}
