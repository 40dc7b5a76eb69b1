package models

import "fmt"

type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventApproved EventStatus = "approved"
	EventRejected EventStatus = "rejected"
)

type EventAction string

const (
	ActionApprove EventAction = "approve"
	ActionReject  EventAction = "reject"
	// ActionRemove is the forced rejection applied when a report review removes an event.
	ActionRemove EventAction = "remove"
)

type eventTransition struct {
	from   EventStatus
	action EventAction
}

var eventTransitions = map[eventTransition]EventStatus{
	{EventPending, ActionApprove}: EventApproved,
	{EventPending, ActionReject}:  EventRejected,
	{EventPending, ActionRemove}:  EventRejected,
	{EventApproved, ActionRemove}: EventRejected,
}

// TransitionError reports an (state, action) pair missing from a transition table.
type TransitionError struct {
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %s from state %s", e.Action, e.From)
}

func (s EventStatus) Valid() bool {
	return s == EventPending || s == EventApproved || s == EventRejected
}

// Apply returns the state reached by taking action a from s.
func (s EventStatus) Apply(a EventAction) (EventStatus, error) {
	next, ok := eventTransitions[eventTransition{s, a}]
	if !ok {
		return s, &TransitionError{From: string(s), Action: string(a)}
	}
	return next, nil
}

type ParticipantStatus string

const (
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantCancelled ParticipantStatus = "cancelled"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportPending:  {ReportReviewed, ReportResolved, ReportDismissed},
	ReportReviewed: {ReportResolved, ReportDismissed},
}

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportReviewed, ReportResolved, ReportDismissed:
		return true
	}
	return false
}

// MoveTo validates a review decision against the report table.
// Resolved and dismissed are terminal.
func (s ReportStatus) MoveTo(next ReportStatus) (ReportStatus, error) {
	for _, allowed := range reportTransitions[s] {
		if allowed == next {
			return next, nil
		}
	}
	return s, &TransitionError{From: string(s), Action: "review:" + string(next)}
}
