package models

// Outcome is the coarse result of remediating one item
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeNoAction  Outcome = "no_action"
	OutcomeError     Outcome = "error"
)

// ItemState is the terminal state an item reached
type ItemState string

const (
	StatePending            ItemState = "pending"
	StateClassifiedNegative ItemState = "classified_negative"
	StateIdentityFailed     ItemState = "identity_failed"
	StateRemovalFailed      ItemState = "removal_failed"
	StateNotifyFailed       ItemState = "notify_failed"
	StateNotified           ItemState = "notified"
)

// RemediationResult pairs the outcome with the state the item stopped in
type RemediationResult struct {
	Outcome Outcome
	State   ItemState
}

// Verdict is the aggregate classification of an item. Never persisted.
type Verdict struct {
	ContainsPII bool
	// Calls and FailedCalls count classifier requests made for the item
	Calls       int
	FailedCalls int
}
