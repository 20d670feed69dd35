// Package registry holds the mutable list of allowed models and the fixed
// set of speech voices.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"tg-llm-proxy/db"
)

var (
	// ErrExists is returned when adding a model that is already registered
	ErrExists = errors.New("model already exists")
	// ErrNotFound is returned when removing an unknown model
	ErrNotFound = errors.New("model not found")
	// ErrLastModel is returned when removing the only remaining model
	ErrLastModel = errors.New("cannot remove the last model")
)

// DefaultModels seeds the registry when nothing has been persisted yet
var DefaultModels = []string{"gpt-3.5-turbo", "gpt-4"}

// Reassigner moves settings off a removed model
type Reassigner interface {
	ReplaceModel(old, replacement string) (int, error)
}

// Registry is the ordered model list. The first entry is the default.
type Registry struct {
	mu     sync.RWMutex
	docs   db.Store
	prefs  Reassigner
	models []string
}

// Load reads the models document, falling back to DefaultModels
func Load(docs db.Store, prefs Reassigner) (*Registry, error) {
	var models []string
	if _, err := docs.Load(db.DocModels, &models); err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	if len(models) == 0 {
		models = append([]string(nil), DefaultModels...)
	}
	return &Registry{docs: docs, prefs: prefs, models: models}, nil
}

// Default returns the first model
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[0]
}

// List returns a copy of the models in order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.models...)
}

// Contains reports whether name is registered
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(name) >= 0
}

// Add appends a model
func (r *Registry) Add(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	r.models = append(r.models, name)
	return r.save()
}

// Remove deletes a model and moves every settings record that used it to
// the new default. It returns the number of records reassigned.
func (r *Registry) Remove(name string) (int, error) {
	r.mu.Lock()
	i := r.indexOf(name)
	if i < 0 {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if len(r.models) == 1 {
		r.mu.Unlock()
		return 0, ErrLastModel
	}
	r.models = append(r.models[:i:i], r.models[i+1:]...)
	err := r.save()
	replacement := r.models[0]
	r.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if r.prefs == nil {
		return 0, nil
	}
	n, err := r.prefs.ReplaceModel(name, replacement)
	if err != nil {
		return n, fmt.Errorf("failed to reassign %s users: %w", name, err)
	}
	return n, nil
}

func (r *Registry) indexOf(name string) int {
	for i, m := range r.models {
		if m == name {
			return i
		}
	}
	return -1
}

func (r *Registry) save() error {
	if err := r.docs.Save(db.DocModels, r.models); err != nil {
		return fmt.Errorf("failed to save models: %w", err)
	}
	return nil
}
