package access

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"tg-llm-proxy/db"
)

// ErrNotFound is returned when removing a user that is not on the allow-list
var ErrNotFound = errors.New("user not in allow-list")

// Control decides who may talk to the bot
type Control struct {
	mu      sync.RWMutex
	docs    db.Store
	adminID int64
	allowed map[int64]struct{}
}

// Load reads the allow-list document
func Load(docs db.Store, adminID int64) (*Control, error) {
	var ids []int64
	if _, err := docs.Load(db.DocAllowedUsers, &ids); err != nil {
		return nil, fmt.Errorf("failed to load allow-list: %w", err)
	}

	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return &Control{docs: docs, adminID: adminID, allowed: allowed}, nil
}

// IsAdmin reports whether userID is the configured administrator
func (c *Control) IsAdmin(userID int64) bool {
	return userID == c.adminID
}

// IsAllowed grants access to allow-listed users, the admin, and anyone in a
// group chat (negative chat id).
func (c *Control) IsAllowed(userID, chatID int64) bool {
	if chatID < 0 || c.IsAdmin(userID) {
		return true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.allowed[userID]
	return ok
}

// Add puts a user on the allow-list. Adding an existing user is a no-op.
func (c *Control) Add(userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.allowed[userID]; ok {
		return nil
	}
	c.allowed[userID] = struct{}{}
	return c.save()
}

// Remove takes a user off the allow-list
func (c *Control) Remove(userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.allowed[userID]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, userID)
	}
	delete(c.allowed, userID)
	return c.save()
}

// List returns the allow-listed users in ascending order
func (c *Control) List() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sorted()
}

func (c *Control) sorted() []int64 {
	ids := make([]int64, 0, len(c.allowed))
	for id := range c.allowed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *Control) save() error {
	if err := c.docs.Save(db.DocAllowedUsers, c.sorted()); err != nil {
		return fmt.Errorf("failed to save allow-list: %w", err)
	}
	return nil
}
