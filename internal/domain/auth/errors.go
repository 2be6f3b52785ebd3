package auth

import "errors"

var (
	// ErrEmailExists indicates a duplicate email address.
	ErrEmailExists = errors.New("email already exists")
	// ErrIdentityExists indicates the provider subject is already linked.
	ErrIdentityExists = errors.New("identity already linked")
)
