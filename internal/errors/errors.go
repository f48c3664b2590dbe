// internal/errors/errors.go
package appErrors

import "fmt"

// UpgradeURL is returned to clients alongside quota denials.
const UpgradeURL = "/pricing"

// NotFoundError is returned when a referenced row does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Kind, e.ID)
}

func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func NewCampaignNotFound(id string) error {
	return NewNotFound("campaign", id)
}

// ValidationError marks user-correctable input problems.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string {
	return "Unauthorized"
}

// QuotaExceededError carries the machine-readable reason of a denied quota check.
type QuotaExceededError struct {
	Resource string
	Reason   string
	Limit    int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s (limit %d)", e.Reason, e.Limit)
}

func NewQuotaExceeded(resource, reason string, limit int) error {
	return &QuotaExceededError{Resource: resource, Reason: reason, Limit: limit}
}

// DependencyError wraps a failure of the store, mail transport or text generation.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func NewDependency(dependency string, err error) error {
	return &DependencyError{Dependency: dependency, Err: err}
}
