package dto

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) ToMap() map[string]string {
	return map[string]string{e.Field: e.Message}
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func validateRequired(field, value string) []ValidationError {
	if strings.TrimSpace(value) == "" {
		return []ValidationError{{Field: field, Message: "is required"}}
	}
	return nil
}

func validateListSize(field string, n, max int) []ValidationError {
	if n > max {
		return []ValidationError{{Field: field, Message: fmt.Sprintf("must contain at most %d items", max)}}
	}
	return nil
}

func validatePriority(priority *int) []ValidationError {
	if priority != nil && (*priority < 0 || *priority > 1000) {
		return []ValidationError{{Field: "priority", Message: "must be between 0 and 1000"}}
	}
	return nil
}

func validateDays(days int) []ValidationError {
	if days < 1 || days > 3650 {
		return []ValidationError{{Field: "older_than_days", Message: "must be between 1 and 3650"}}
	}
	return nil
}

