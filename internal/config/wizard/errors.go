package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errProjectRequired    = errors.New("project name is required")
	errNameInvalid        = errors.New("name must be a lowercase DNS label of at most 63 characters")
	errComponentsRequired = errors.New("select at least one component")
	errDurationInvalid    = errors.New("invalid duration (expected e.g. 90s or 5m)")
	errConcurrencyInvalid = errors.New("concurrency must be a positive number")
)
