package models

import (
	"strings"
	"time"

	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
)

// Action is a lifecycle action applied to an application.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionStartReview     Action = "start_review"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
)

// ReviewActions are the actions an admin may send to the review endpoint.
var ReviewActions = []Action{ActionStartReview, ActionApprove, ActionReject, ActionRequestRevision}

// ParseReviewAction validates an admin review action.
func ParseReviewAction(s string) (Action, error) {
	for _, a := range ReviewActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "unknown review action: "+s)
}

// transitions is the complete certification state machine. Anything not
// listed here is an invalid transition.
var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSubmit: StatusSubmitted,
	},
	StatusRevisionRequested: {
		ActionSubmit: StatusSubmitted,
	},
	StatusRejected: {
		ActionSubmit: StatusSubmitted,
	},
	StatusSubmitted: {
		ActionStartReview: StatusUnderReview,
	},
	StatusUnderReview: {
		ActionApprove:         StatusCertified,
		ActionReject:          StatusRejected,
		ActionRequestRevision: StatusRevisionRequested,
	},
	StatusCertified: {},
}

// NextStatus is the single dispatch point for the transition table.
func NextStatus(from Status, action Action) (Status, error) {
	to, ok := transitions[from][action]
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidTransition,
			"cannot "+strings.ReplaceAll(string(action), "_", " ")+" an application that is "+strings.ReplaceAll(string(from), "_", " "))
	}
	return to, nil
}

// AllowedActions lists the actions legal from status, in table order.
func AllowedActions(from Status) []Action {
	var out []Action
	for _, a := range append([]Action{ActionSubmit}, ReviewActions...) {
		if _, ok := transitions[from][a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// TransitionInput carries what a transition needs besides the action.
type TransitionInput struct {
	Notes string
	Actor id.ActorID
	Now   time.Time
}

// requiresNotes lists actions that must carry a non-blank reason.
var requiresNotes = map[Action]string{
	ActionReject:          "provide a reason before rejecting",
	ActionRequestRevision: "provide revision notes before requesting a revision",
}

// Transition validates action against the table and the action's own guard,
// then moves the application into the target state. On error the
// application is unchanged. The submit readiness guard (profile
// completeness, required documents) depends on collaborators and is checked
// by the caller before Transition.
func (a *Application) Transition(action Action, in TransitionInput) (Status, error) {
	to, err := NextStatus(a.Status(), action)
	if err != nil {
		return "", err
	}
	if msg, ok := requiresNotes[action]; ok && strings.TrimSpace(in.Notes) == "" {
		return "", dErrors.New(dErrors.CodeMissingNotes, msg)
	}

	switch to {
	case StatusSubmitted:
		submittedAt := in.Now
		a.SubmittedAt = &submittedAt
		a.State = Submitted{}
	case StatusUnderReview:
		a.State = UnderReview{StartedAt: in.Now, ReviewerID: in.Actor}
	case StatusCertified:
		a.State = Certified{CertifiedAt: in.Now, ListingVisible: false}
	case StatusRejected:
		a.State = Rejected{Reason: in.Notes, DecidedAt: in.Now, ReviewerID: in.Actor}
	case StatusRevisionRequested:
		a.State = RevisionRequested{Notes: in.Notes, DecidedAt: in.Now, ReviewerID: in.Actor}
	default:
		return "", dErrors.New(dErrors.CodeInvariantViolation, "transition table targets unknown status "+string(to))
	}
	a.UpdatedAt = in.Now
	return to, nil
}
