package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/models"
	"github.com/tonetrace/tonetrace/internal/services"
)

// ErrorHandler renders errors that escape the handlers in the standard
// error envelope. Service errors keep their code; fiber errors are mapped
// by status.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		detail := models.ErrorDetail{
			Code:    services.CodeInternal,
			Message: "Internal Server Error",
			Path:    c.Path(),
		}

		var se *services.ServiceError
		var fe *fiber.Error
		switch {
		case errors.As(err, &se):
			status = se.StatusCode()
			detail.Code = se.Code
			detail.Message = se.Message
			detail.Details = se.Details
		case errors.As(err, &fe):
			status = fe.Code
			detail.Code = codeForStatus(fe.Code)
			detail.Message = fe.Message
		}

		log := logger.WithContext(c.UserContext())
		if status >= fiber.StatusInternalServerError {
			log.Error("Request error",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"error", err)
		} else {
			log.Warn("Request rejected",
				"path", c.Path(),
				"method", c.Method(),
				"status", status,
				"error", err)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
		return services.CodeInvalidRequest
	case fiber.StatusUnauthorized:
		return services.CodeUnauthorized
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return services.CodeNotFound
	case fiber.StatusConflict:
		return services.CodeUpdateConflict
	case fiber.StatusServiceUnavailable:
		return services.CodeStoreUnavailable
	default:
		return services.CodeInternal
	}
}
