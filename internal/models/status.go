package models

// Transition tables for every status enum. Handlers must consult these
// before mutating a row; a transition absent from the table is an
// invalid-status error, never a silent write.

var gigTransitions = map[GigStatus][]GigStatus{
	GigOpen:       {GigInProgress, GigCancelled},
	GigInProgress: {GigSubmitted},
	GigSubmitted:  {GigCompleted, GigInProgress}, // back to in_progress on rejection
	GigCompleted:  {},
	GigCancelled:  {},
}

// The release path collapses approval and payment: submitted -> paid with
// approved_at and paid_at set together. approved stays reachable so a
// two-step approve-then-pay flow would not need a schema change.
var milestoneTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestonePending:   {MilestoneSubmitted},
	MilestoneSubmitted: {MilestoneApproved, MilestonePaid},
	MilestoneApproved:  {MilestonePaid},
	MilestonePaid:      {},
}

var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionPending:  {SubmissionApproved, SubmissionRejected},
	SubmissionApproved: {},
	SubmissionRejected: {},
}

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending:   {TransactionConfirmed, TransactionFailed},
	TransactionConfirmed: {},
	TransactionFailed:    {},
}

func (s GigStatus) CanTransitionTo(next GigStatus) bool {
	for _, allowed := range gigTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s MilestoneStatus) CanTransitionTo(next MilestoneStatus) bool {
	for _, allowed := range milestoneTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transactionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
