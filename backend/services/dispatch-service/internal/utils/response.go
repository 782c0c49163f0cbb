package utils

// Error codes specific to dispatch-service only.
const (
	ErrCodeInvalidAction = "invalid_action"
	ErrCodeEmailExists   = "email_exists"
)
