// Package identity provides the identity-provider boundary: email and
// password sign-in with a stream of "current user changed" events.
package identity

import "context"

// User is the authenticated principal.
type User struct {
	ID    string
	Email string
}

// Provider is the identity provider contract. AuthChanges delivers the
// current user (or nil) once initial credential resolution finishes and
// again after every sign-in, sign-up, and sign-out.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error

	// AuthChanges registers a listener for user changes and returns an
	// unsubscribe function. Listeners registered before resolution of
	// the stored credential completes receive their first event when it
	// does; listeners registered after receive the current user
	// immediately.
	AuthChanges(fn func(user *User)) (cancel func())
}
