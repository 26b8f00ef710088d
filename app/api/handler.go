package api

import (
	"strings"

	"vta/engine"
	"vta/types"

	"github.com/gofiber/fiber/v2"
)

type RequestHandler struct {
	engine *engine.Holder
}

func NewRequestHandler(holder *engine.Holder) *RequestHandler {
	return &RequestHandler{
		engine: holder,
	}
}

// HandleQuestion serves POST /. The engine must be ready, the body must
// parse, and the question must be non-empty after trimming; everything else
// is delegated to the engine and mapped by the central error handler.
func (h *RequestHandler) HandleQuestion(c *fiber.Ctx) error {
	eng, err := h.engine.Get()
	if err != nil {
		return err
	}

	var params types.QueryParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	question := strings.TrimSpace(params.Question)
	if question == "" {
		return ErrEmptyQuestion()
	}

	answer, links, err := eng.Answer(c.Context(), question)
	if err != nil {
		return err
	}

	if links == nil {
		links = []types.SourceLink{}
	}
	return c.JSON(types.QueryResponse{
		Answer: answer,
		Links:  links,
	})
}

// HandleWelcome serves GET / regardless of engine state.
func (h *RequestHandler) HandleWelcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Virtual TA API is running."})
}
