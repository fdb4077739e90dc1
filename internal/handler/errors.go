package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/pkg/response"
)

func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string)
		for _, e := range validationErrors {
			fields[e.Namespace()] = e.Tag()
		}
		return fields
	}
	return nil
}

// writeError maps service errors onto response envelopes
func writeError(c *fiber.Ctx, err error) error {
	var invalid *errs.ValidationError
	switch {
	case errors.As(err, &invalid):
		var details interface{}
		if invalid.Field != "" {
			details = map[string]string{invalid.Field: invalid.Message}
		}
		return response.ValidationError(c, invalid.Error(), details)
	case errors.Is(err, errs.ErrInvalidTableName):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, errs.ErrJobNotFound), errors.Is(err, errs.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, errs.ErrNotConfigured):
		return response.NotConfigured(c, "Backend not configured")
	}
	return response.ServiceError(c, err.Error())
}
