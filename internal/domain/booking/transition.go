package booking

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrActorUnauthorized   = errors.New("actor has no relationship to the booking")
	ErrTransitionForbidden = errors.New("status transition not allowed for actor")
	ErrTerminalStatus      = errors.New("booking is in a terminal status")
	ErrTooEarly            = errors.New("status change not yet allowed")
	ErrNoStaff             = errors.New("booking has no assigned staff")
)

// transitions is keyed by actor class and current status. Admin rows are
// filled in by init with every status.
var transitions = map[ActorClass]map[Status][]Status{
	ActorAdmin: {},
	ActorStaff: {
		StatusPending:   {StatusConfirmed, StatusCancelled, StatusNoShow},
		StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	},
	ActorCustomer: {
		StatusPending: {StatusCancelled},
	},
	ActorGuest: {},
}

func init() {
	for _, from := range allStatuses {
		transitions[ActorAdmin][from] = slices.Clone(allStatuses)
	}
}

// AllowedTransitions returns the statuses an actor may move a booking to from the given status.
func AllowedTransitions(actor ActorClass, from Status) []Status {
	return slices.Clone(transitions[actor][from])
}

type TransitionRequest struct {
	Actor     ActorClass
	From      Status
	To        Status
	StartAt   time.Time
	EndAt     time.Time
	HasBarber bool
	Grace     time.Duration
	Now       time.Time
}

// CheckRole applies the role table only. Moving to the current status is not
// a transition and passes for every related actor.
func CheckRole(actor ActorClass, from, to Status) error {
	if actor == ActorGuest {
		return ErrActorUnauthorized
	}
	if from == to {
		return nil
	}
	if !slices.Contains(transitions[actor][from], to) {
		if from.IsTerminal() && actor != ActorAdmin {
			return ErrTerminalStatus
		}
		return ErrTransitionForbidden
	}
	return nil
}

// CheckTransition decides a status change: first the role table, then the time guards.
func CheckTransition(req TransitionRequest) error {
	if err := CheckRole(req.Actor, req.From, req.To); err != nil {
		return err
	}
	if req.From == req.To {
		return nil
	}

	switch req.To {
	case StatusNoShow:
		if req.Now.Before(req.StartAt.Add(req.Grace)) {
			return ErrTooEarly
		}
	case StatusCompleted:
		if !req.EndAt.Before(req.Now) {
			return ErrTooEarly
		}
		if !req.HasBarber {
			return ErrNoStaff
		}
	}
	return nil
}
