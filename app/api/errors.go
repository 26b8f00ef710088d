package api

import (
	"errors"
	"fmt"
	"log"

	"vta/engine"
	"vta/types"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler maps every error that escapes a handler onto a structured
// JSON response. Nothing leaves the process unhandled.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Code).JSON(apiErr)
	}

	var valErr types.ValidationError
	if errors.As(err, &valErr) {
		return c.Status(valErr.Status).JSON(valErr)
	}

	switch {
	case errors.Is(err, engine.ErrNotReady):
		apiErr = ErrEngineUnavailable(err)
	case errors.Is(err, engine.ErrEmbedding),
		errors.Is(err, engine.ErrStore),
		errors.Is(err, engine.ErrSynthesis):
		apiErr = NewError(fiber.StatusInternalServerError,
			fmt.Sprintf("an error occurred while processing your question: %v", err))
	default:
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			apiErr = NewError(fiberErr.Code, fiberErr.Message)
		} else {
			apiErr = NewError(fiber.StatusInternalServerError, err.Error())
		}
	}

	log.Printf("[API] request failed with code %d: %s", apiErr.Code, apiErr.Message)
	return c.Status(apiErr.Code).JSON(apiErr)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrEmptyQuestion() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "question cannot be empty",
	}
}

func ErrEngineUnavailable(err error) Error {
	return Error{
		Code:    fiber.StatusServiceUnavailable,
		Message: fmt.Sprintf("virtual TA engine not initialized, please try again later: %v", err),
	}
}
