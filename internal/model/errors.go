package model

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyPassword is returned before any key derivation work when the
	// supplied password is empty.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrDecryption is returned when ciphertext fails authentication,
	// meaning a wrong password or corrupted data.
	ErrDecryption = errors.New("decryption failed: wrong password or corrupted data")
	// ErrSessionNotFound is returned when no unlocked vault session matches
	// the presented token.
	ErrSessionNotFound = errors.New("vault session not found")
	// ErrInvalidToken is returned for missing or unparseable session tokens.
	ErrInvalidToken = errors.New("invalid session token")
)
