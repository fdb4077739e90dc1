package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datasynth/api/internal/service"
	"github.com/datasynth/api/pkg/response"
)

const defaultRowLimit = 100

type TableHandler struct {
	service *service.TableService
}

func NewTableHandler(svc *service.TableService) *TableHandler {
	return &TableHandler{service: svc}
}

// List handles GET /api/tables
// @Summary      List generated tables
// @Tags         Tables
// @Produce      json
// @Success      200 {object} map[string][]string
// @Failure      503 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tables [get]
func (h *TableHandler) List(c *fiber.Ctx) error {
	tables, err := h.service.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, fiber.Map{"tables": tables})
}

// Rows handles GET /api/tables/:table/rows
// @Summary      Read rows of a generated table
// @Tags         Tables
// @Produce      json
// @Param        table path string true "Table name"
// @Param        limit query int false "Rows to return, 1-1000"
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tables/{table}/rows [get]
func (h *TableHandler) Rows(c *fiber.Ctx) error {
	table := c.Params("table")
	limit := c.QueryInt("limit", defaultRowLimit)

	rows, err := h.service.Rows(c.UserContext(), table, limit)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, fiber.Map{"table": table, "rows": rows, "count": len(rows)})
}

// Columns handles GET /api/tables/:table/columns
// @Summary      Describe a generated table
// @Tags         Tables
// @Produce      json
// @Param        table path string true "Table name"
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/tables/{table}/columns [get]
func (h *TableHandler) Columns(c *fiber.Ctx) error {
	table := c.Params("table")

	cols, err := h.service.Columns(c.UserContext(), table)
	if err != nil {
		return writeError(c, err)
	}
	return response.OK(c, fiber.Map{"table": table, "columns": cols})
}
