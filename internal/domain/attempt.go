package domain

import "time"

// AttemptOutcome classifies a single dispatch attempt.
type AttemptOutcome string

const (
	AttemptOutcomeDelivered  AttemptOutcome = "delivered"
	AttemptOutcomeNoToken    AttemptOutcome = "no-token"
	AttemptOutcomeSendFailed AttemptOutcome = "send-failed"
)

func (o AttemptOutcome) String() string { return string(o) }

func (o AttemptOutcome) IsValid() bool {
	switch o {
	case AttemptOutcomeDelivered, AttemptOutcomeNoToken, AttemptOutcomeSendFailed:
		return true
	}
	return false
}

// NotificationAttempt records a single dispatch attempt for an actor. There
// is at most one attempt per triggering transition; the row exists for
// observability, not for retry bookkeeping.
type NotificationAttempt struct {
	ID                string
	TargetActorID     string
	TargetKind        ActorKind
	Title             string
	Body              string
	Outcome           AttemptOutcome
	Reason            *string
	ProviderMessageID *string
	CreatedAt         time.Time
}
