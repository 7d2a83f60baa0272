// Package access decides whether an acting user may mutate a target user's wishlist.
package access

import "github.com/google/uuid"

// Actor is the identity performing a request. The zero value is anonymous.
type Actor struct {
	UserID uuid.UUID
	Login  string
}

// Anonymous is the actor used when no credentials were presented.
var Anonymous = Actor{}

// Authenticated reports whether the actor carries a resolved user.
func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil && a.Login != ""
}

// Decision is the gate outcome.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Authorize allows a mutation only when the actor is authenticated and is the
// owner of the target wishlist. Logins compare exactly. The gate never consults
// the store, so a denial looks the same whether or not targetLogin exists.
func Authorize(actor Actor, targetLogin string) Decision {
	if !actor.Authenticated() {
		return Denied
	}
	if actor.Login != targetLogin {
		return Denied
	}
	return Allowed
}
