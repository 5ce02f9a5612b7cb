package app

import "errors"

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrBatchNotFound   = errors.New("no batch has been started for this project")
	ErrBatchRunning    = errors.New("batch already running")
	ErrNotStale        = errors.New("batch is still making progress")
	ErrInvalidInput    = errors.New("invalid input")
)
