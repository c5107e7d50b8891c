package booking

import (
	"salon-booking/internal/domain/user"

	"github.com/google/uuid"
)

// ActorClass is the requester's relationship to a booking, resolved once per call.
type ActorClass string

const (
	ActorAdmin    ActorClass = "admin"
	ActorStaff    ActorClass = "staff"
	ActorCustomer ActorClass = "customer"
	ActorGuest    ActorClass = "guest"
)

func (a ActorClass) String() string {
	return string(a)
}

// CanEditSchedule reports whether the class may change barber, date, start time or services.
func (a ActorClass) CanEditSchedule() bool {
	return a == ActorAdmin || a == ActorStaff
}

type Actor struct {
	ID   uuid.UUID
	Role user.Role
}

// Classify resolves the actor class. Privileged roles win over shop
// membership, which wins over ownership of the booking.
func Classify(actor Actor, customerID uuid.UUID, isShopStaff bool) ActorClass {
	switch {
	case actor.Role.IsPrivileged():
		return ActorAdmin
	case isShopStaff:
		return ActorStaff
	case actor.ID != uuid.Nil && actor.ID == customerID:
		return ActorCustomer
	default:
		return ActorGuest
	}
}
