package handler

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// formatValidationErrors turns validator output into a field → message map
func formatValidationErrors(err error) map[string]string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": err.Error()}
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
	return out
}
