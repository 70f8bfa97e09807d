// Package kvstore provides the persistent string key-value store that backs
// the guest cart, the access credential and the language preference.
// Every operation is atomic for a single key; there are no cross-key
// transactions.
package kvstore

import (
	"context"
	"errors"
)

// Fixed keys shared by the storefront client components.
const (
	GuestCartKey   = "guestCartV1"
	AccessTokenKey = "ecom_access_token"
	LanguageKey    = "ecom_lang"
)

// DefaultProfile is used when no profile name is configured.
const DefaultProfile = "default"

// ErrEmptyKey is returned when an operation is attempted with an empty key.
var ErrEmptyKey = errors.New("kvstore: key must not be empty")

// Store defines the persistent key-value operations.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
