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
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists        = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized         = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden            = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState         = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock    = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrWorkflowDisabled     = NewDomainError("WORKFLOW_DISABLED", "Workflow is disabled")
	ErrReportAlreadyRunning = NewDomainError("REPORT_ALREADY_RUNNING", "Report generation is already in progress")
)

// Remote data anomalies recognized during synchronization. These are named
// conditions with a specific non-retrying disposition, never generic failures.
var (
	// ErrRemoteOrderNotFound indicates the remote platform returned 404 for an
	// order we hold locally. The local record is treated as an orphan.
	ErrRemoteOrderNotFound = NewDomainError("REMOTE_ORDER_NOT_FOUND", "Order no longer exists on the shipping platform")
	// ErrRemoteOrderEmpty indicates a remote order with zero line items.
	// Such orders are still being assembled and are skipped without error.
	ErrRemoteOrderEmpty = NewDomainError("REMOTE_ORDER_EMPTY", "Remote order has no line items yet")
	// ErrDuplicateSKUInOrder indicates a remote order carrying the same SKU on
	// more than one line. The storage schema enforces SKU uniqueness per order,
	// so such an order is never written.
	ErrDuplicateSKUInOrder = NewDomainError("DUPLICATE_SKU_IN_ORDER", "Remote order contains a repeated SKU")
	// ErrRateLimited indicates the remote platform returned 429 after retries
	// were exhausted.
	ErrRateLimited = NewDomainError("RATE_LIMITED", "Shipping platform rate limit exceeded")
)
