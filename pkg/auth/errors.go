package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown usernames and password
	// mismatches alike so callers cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountLocked is returned while a lockout window is in effect,
	// including the attempt that triggers it.
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrAccountInactive is returned when the password matches but the
	// account has been disabled.
	ErrAccountInactive = errors.New("account inactive")

	// ErrTokenExpired means the token was well formed and correctly
	// signed but its expiry has passed.
	ErrTokenExpired = errors.New("session token expired")

	// ErrTokenInvalid means the token is malformed, carries a bad
	// signature, or was signed with an unexpected method.
	ErrTokenInvalid = errors.New("session token invalid")

	// ErrAccountGone means a token verified but its account no longer
	// exists or is no longer active.
	ErrAccountGone = errors.New("account no longer valid")

	// ErrAccountNotFound is the store-level miss for lookups by
	// username or id.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateKey maps unique-constraint violations on create or
	// update (username, email).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrMissingSecret rejects construction of a token codec without a
	// signing secret.
	ErrMissingSecret = errors.New("token signing secret is required")
)
