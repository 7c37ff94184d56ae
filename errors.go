package cart

import (
	"errors"
	"fmt"

	"github.com/xraph/cart/event"
	"github.com/xraph/cart/persist"
	"github.com/xraph/cart/store"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput   = errors.New("cart: invalid input")
	ErrInvalidStoreID = errors.New("cart: invalid store id")
	ErrClosed         = errors.New("cart: cart is closed")

	// Item errors
	ErrInvalidQuantity = errors.New("cart: invalid quantity")
	ErrInvalidProduct  = errors.New("cart: product has no variant id")

	// Handler errors
	ErrInvalidHandler  = event.ErrInvalidHandler
	ErrUnknownLabel    = event.ErrUnknownLabel
	ErrNoSubmitHandler = event.ErrNoSubmitHandler

	// Order errors
	ErrRatesRefreshing = errors.New("cart: rates are being refreshed")
	ErrSubmitFailed    = errors.New("cart: order submission failed")

	// Rate errors
	ErrRatesFailed           = errors.New("cart: rates lookup failed")
	ErrBillingAddressInvalid = errors.New("cart: billing address missing or invalid")

	// Persistence errors
	ErrPersist  = errors.New("cart: persistence failed")
	ErrNotFound = store.ErrNotFound
	ErrCorrupt  = persist.ErrCorrupt
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("cart: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "cart: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("cart: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrOrNil returns e when it holds errors, nil otherwise.
func (e MultiError) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConfigurationError returns true if the error stems from how the cart was
// set up or called rather than from a backend or handler.
func IsConfigurationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidStoreID) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrInvalidHandler) ||
		errors.Is(err, ErrUnknownLabel) ||
		errors.Is(err, ErrNoSubmitHandler)
}

// IsTransient returns true if the error is temporary and the operation can be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRatesRefreshing) ||
		errors.Is(err, ErrSubmitFailed) ||
		errors.Is(err, ErrRatesFailed) ||
		errors.Is(err, ErrPersist)
}
