package audithook

// Action constants for audit events.
const (
	// Cart actions
	ActionCartLoaded   = "cart.loaded"
	ActionCartRestored = "cart.restored"
	ActionCartCleared  = "cart.cleared"

	// Item actions
	ActionItemAdded   = "item.added"
	ActionItemUpdated = "item.updated"
	ActionItemRemoved = "item.removed"

	// Address actions
	ActionAddressChanged = "address.changed"

	// Rate actions
	ActionRatesRefreshed = "rates.refreshed"
	ActionRatesFailed    = "rates.failed"

	// Order actions
	ActionOrderSubmitted = "order.submitted"
	ActionOrderRejected  = "order.rejected"
)

// Resource constants for audit events.
const (
	ResourceCart    = "cart"
	ResourceItem    = "item"
	ResourceAddress = "address"
	ResourceRates   = "rates"
	ResourceOrder   = "order"
)

// Category constants for audit events.
const (
	CategoryCart     = "cart"
	CategoryCheckout = "checkout"
	CategoryPayment  = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
