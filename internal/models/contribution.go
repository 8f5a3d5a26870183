package models

import "time"

// Contribution is one recorded deposit toward a goal. Contributions are
// owned by the goal/asset pairing; the link to an execution record is a weak
// reference by ID, since a contribution can outlive the record's undo
// window.
type Contribution struct {
	// ID is the unique identifier for the contribution (UUID format).
	ID string

	// GoalID is the goal the deposit counts toward.
	GoalID string

	// AssetID identifies the asset the deposit was made in (e.g., "BTC").
	AssetID string

	// Amount is the deposit value converted to the goal currency.
	Amount float64

	// AssetAmount is the raw amount in the asset's own unit.
	AssetAmount float64

	// ExchangeRate is the asset→goal-currency rate used for Amount.
	ExchangeRate float64

	// Date is when the deposit happened.
	Date time.Time

	// MonthLabel is the "YYYY-MM" bucket the deposit was recorded under.
	MonthLabel string

	// ExecutionRecordID links the contribution to the execution record it
	// was recorded during, if any. Lookup key only.
	ExecutionRecordID string

	// Comment is an optional free-form note.
	Comment string
}
