package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound = NewDomainError("NOT_FOUND", "Resource not found")
	// ErrInvalidInput reports malformed caller input. The contacts CLI wraps
	// it for a record id that is not a UUID, so "show 42" fails with
	// INVALID_INPUT rather than NOT_FOUND.
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnknownAttribute  = NewDomainError("UNKNOWN_ATTRIBUTE", "Attribute is not delegated")
	ErrRecordInvalid     = NewDomainError("RECORD_INVALID", "Record is invalid")
	ErrInvalidDelegation = NewDomainError("INVALID_DELEGATION", "Delegation is misconfigured")
)
