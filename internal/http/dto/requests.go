package dto

import "github.com/cesargomez89/pdfhunter/internal/constants"

type CreateProjectRequest struct {
	Name string   `json:"name"`
	DOIs []string `json:"dois"`
}

func (r *CreateProjectRequest) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRequired("name", r.Name)...)
	errs = append(errs, validateListSize("dois", len(r.DOIs), constants.MaxProjectDOIs)...)
	return errs
}

type StartBatchRequest struct {
	ForceRestart bool `json:"force_restart"`
}

type SourceUpdateRequest struct {
	Enabled  *bool `json:"enabled"`
	Priority *int  `json:"priority"`
}

func (r *SourceUpdateRequest) Validate() []ValidationError {
	var errs []ValidationError
	if r.Enabled == nil && r.Priority == nil {
		errs = append(errs, ValidationError{Field: "body", Message: "one of enabled or priority is required"})
	}
	errs = append(errs, validatePriority(r.Priority)...)
	return errs
}

type ResetPerformanceRequest struct {
	Source string `json:"source"`
}

type PruneAttemptsRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

func (r *PruneAttemptsRequest) Validate() []ValidationError {
	return validateDays(r.OlderThanDays)
}

type ValidateDOIsRequest struct {
	DOIs []string `json:"dois"`
}

func (r *ValidateDOIsRequest) Validate() []ValidationError {
	var errs []ValidationError
	if len(r.DOIs) == 0 {
		errs = append(errs, ValidationError{Field: "dois", Message: "is required"})
	}
	errs = append(errs, validateListSize("dois", len(r.DOIs), constants.MaxValidateBatch)...)
	return errs
}
