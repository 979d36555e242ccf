// Package common defines shared sentinel errors used across accountkeeper
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Precondition errors, detected before any side effect.
	ErrValidation    = errors.New("validation error")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")

	// ErrAuthority marks a failed or timed-out call into the account
	// authority. The tracking store was not touched.
	ErrAuthority = errors.New("authority failure")

	// ErrStoreIO marks a tracking store commit failure. When it follows a
	// successful authority mutation the two sides may have drifted and the
	// operator needs to reconcile.
	ErrStoreIO = errors.New("store i/o failure")

	ErrUnauthorized = errors.New("unauthorized")
)
