package types

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

// QueryParams is the body of POST /. Image is accepted for forward
// compatibility but retrieval does not use it.
type QueryParams struct {
	Question string `json:"question" validate:"required"`
	Image    string `json:"image,omitempty"`
}

type QueryResponse struct {
	Answer string       `json:"answer"`
	Links  []SourceLink `json:"links"`
}

// SourceLink points at the material a retrieved segment came from.
type SourceLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *QueryParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: http.StatusUnprocessableEntity,
		Errors: errors,
	}
}
