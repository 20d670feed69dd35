// Package session keeps the in-memory turn history used as LLM context for
// each (user, chat) pair. Nothing here is persisted.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// Role of a turn
type Role string

// Turn roles
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrNothingToRedo is returned by Redo when no completed exchange exists
var ErrNothingToRedo = errors.New("nothing to redo")

// Turn is one message in a session
type Turn struct {
	Role    Role
	Content string
}

// Key identifies a session
type Key struct {
	UserID int64
	ChatID int64
}

// KeyFor builds the session key for a user in a chat
func KeyFor(userID, chatID int64) Key {
	return Key{UserID: userID, ChatID: chatID}
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.UserID, k.ChatID)
}

// Decision says what an incoming message does to its session
type Decision int

const (
	// Continue keeps the existing turns (a reply to the bot)
	Continue Decision = iota
	// Reset clears the session before the message is appended
	Reset
	// Drop ignores the message entirely
	Drop
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case Reset:
		return "reset"
	case Drop:
		return "drop"
	}
	return "unknown"
}

// Decide picks the decision for a message. Replies to the bot continue the
// thread. Other messages start over in private chats and are ignored in
// groups, whose ids are negative.
func Decide(isReplyToBot bool, chatID int64) Decision {
	switch {
	case isReplyToBot:
		return Continue
	case chatID < 0:
		return Drop
	default:
		return Reset
	}
}

// Manager owns every session
type Manager struct {
	mu       sync.Mutex
	sessions map[Key][]Turn
	locks    map[Key]*sync.Mutex
}

// NewManager creates an empty manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[Key][]Turn),
		locks:    make(map[Key]*sync.Mutex),
	}
}

// Lock serializes whole read-modify-write cycles on one key, including the
// LLM call in between. Call the returned func to release.
func (m *Manager) Lock(key Key) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Begin applies Decide to the session and returns the decision
func (m *Manager) Begin(key Key, isReplyToBot bool, chatID int64) Decision {
	d := Decide(isReplyToBot, chatID)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch d {
	case Continue:
		if _, ok := m.sessions[key]; !ok {
			m.sessions[key] = []Turn{}
		}
	case Reset:
		m.sessions[key] = []Turn{}
	}
	return d
}

// Start resets the session unconditionally
func (m *Manager) Start(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = []Turn{}
}

// Append adds a turn, creating the session on first use
func (m *Manager) Append(key Key, role Role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = append(m.sessions[key], Turn{Role: role, Content: content})
}

// Turns returns a copy of the session's turns
func (m *Manager) Turns(key Key) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.sessions[key])
}

// Exists reports whether the session has been created
func (m *Manager) Exists(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[key]
	return ok
}

// Redo drops the last assistant turn so the answer can be regenerated and
// returns the remaining turns. At least one exchange (two turns) is needed.
// A trailing user turn left by a failed call is kept and regenerated as is.
func (m *Manager) Redo(key Key) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := m.sessions[key]
	if len(turns) < 2 {
		return nil, ErrNothingToRedo
	}
	if turns[len(turns)-1].Role == RoleAssistant {
		turns = turns[:len(turns)-1]
		m.sessions[key] = turns
	}
	return clone(turns), nil
}

func clone(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
