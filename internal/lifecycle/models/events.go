package models

import (
	"time"

	id "certflow/pkg/domain"
)

// StatusChange describes a committed certification status transition. It is
// what notification dispatchers receive.
type StatusChange struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	AccountID     id.AccountID     `json:"account_id"`
	Action        Action           `json:"action"`
	From          Status           `json:"from"`
	To            Status           `json:"to"`
	ActorID       id.ActorID       `json:"actor_id"`
	Notes         string           `json:"notes,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
