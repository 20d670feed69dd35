package db

import (
	"errors"
	"fmt"
	"regexp"
)

// Document names used by the bot
const (
	DocModels       = "models"
	DocAllowedUsers = "allowed_users"
	DocSettings     = "settings"
)

// Supported backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// ErrInvalidName is returned for document names that are not plain identifiers
var ErrInvalidName = errors.New("invalid document name")

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Store persists named JSON documents. Every document is written whole;
// there are no partial updates.
type Store interface {
	// Load decodes the named document into v. It reports false when the
	// document has never been saved, leaving v untouched.
	Load(name string, v any) (bool, error)

	// Save encodes v and replaces the named document
	Save(name string, v any) error

	// Close releases the underlying resources
	Close() error
}

// Open opens the store for the given backend rooted at dir
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return NewFileStore(dir)
	case BackendSQLite:
		return New(dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func checkName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
