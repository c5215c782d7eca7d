package repositories

import "fmt"

// OrderErrorCode enumerates repository error causes for order operations.
type OrderErrorCode string

const (
	// OrderErrorUnknown represents an unspecified failure.
	OrderErrorUnknown OrderErrorCode = "order_unknown"
	// OrderErrorNotFound indicates the order document is missing.
	OrderErrorNotFound OrderErrorCode = "order_not_found"
	// OrderErrorDuplicate indicates an order with this ID already exists.
	OrderErrorDuplicate OrderErrorCode = "order_duplicate"
	// OrderErrorInvalidTransition indicates the order status forbids the operation.
	OrderErrorInvalidTransition OrderErrorCode = "order_invalid_transition"
)

// OrderError wraps order-specific failures with machine readable codes.
type OrderError struct {
	Op      string
	Code    OrderErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *OrderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *OrderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOrderError constructs a typed order error.
func NewOrderError(code OrderErrorCode, message string, err error) *OrderError {
	if message == "" {
		message = string(code)
	}
	return &OrderError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// OrderErrorCodeOf extracts the code from err when it is an OrderError.
func OrderErrorCodeOf(err error) (OrderErrorCode, bool) {
	for err != nil {
		if oe, ok := err.(*OrderError); ok {
			return oe.Code, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = unwrapper.Unwrap()
	}
	return "", false
}
