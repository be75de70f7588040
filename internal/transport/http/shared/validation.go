package shared

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"leavedesk/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validate runs struct tag validation on a decoded payload. On failure it
// writes a validation_error response and reports true.
func Validate(w http.ResponseWriter, v *validator.Validate, payload any, requestID string) bool {
	err := v.Struct(payload)
	if err == nil {
		return false
	}
	var fieldErrs validator.ValidationErrors
	errors.As(err, &fieldErrs)
	issues := make([]ValidationIssue, 0, 4)
	for _, fe := range fieldErrs {
		issues = append(issues, ValidationIssue{
			Field:  strings.ToLower(fe.Field()),
			Reason: reasonFor(fe),
		})
	}
	if len(issues) == 0 {
		issues = append(issues, ValidationIssue{Field: "", Reason: "payload validation failed"})
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Field == issues[j].Field {
			return issues[i].Reason < issues[j].Reason
		}
		return issues[i].Field < issues[j].Field
	})
	FailValidation(w, requestID, issues)
	return true
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + strings.ToLower(fe.Param()) + " is absent"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	default:
		return "failed validation rule " + fe.Tag()
	}
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(
		w,
		http.StatusBadRequest,
		"validation_error",
		"payload validation failed",
		map[string]any{"fields": issues},
		requestID,
	)
}
