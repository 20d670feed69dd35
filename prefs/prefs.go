// Package prefs holds per-user preferences: one global record per user plus
// optional per-chat override records that take precedence over it.
package prefs

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"tg-llm-proxy/db"
)

// Key names a single setting
type Key string

// Known setting keys
const (
	KeyModel        Key = "model"
	KeyVoice        Key = "voice"
	KeyStreamOutput Key = "stream_output"
)

var (
	// ErrUnknownKey is returned when writing a key that is not a known setting
	ErrUnknownKey = errors.New("unknown setting key")
	// ErrBadValue is returned when the value type does not match the key
	ErrBadValue = errors.New("bad setting value")
)

// Settings is one settings record. A nil field means the record does not
// contain that key.
type Settings struct {
	Model        *string `json:"model,omitempty"`
	Voice        *string `json:"voice,omitempty"`
	StreamOutput *bool   `json:"stream_output,omitempty"`
}

func (s Settings) lookup(key Key) (any, bool) {
	switch key {
	case KeyModel:
		if s.Model != nil {
			return *s.Model, true
		}
	case KeyVoice:
		if s.Voice != nil {
			return *s.Voice, true
		}
	case KeyStreamOutput:
		if s.StreamOutput != nil {
			return *s.StreamOutput, true
		}
	}
	return nil, false
}

func (s *Settings) assign(key Key, value any) error {
	switch key {
	case KeyModel, KeyVoice:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants a string, got %T", ErrBadValue, key, value)
		}
		if key == KeyModel {
			s.Model = &str
		} else {
			s.Voice = &str
		}
	case KeyStreamOutput:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s wants a bool, got %T", ErrBadValue, key, value)
		}
		s.StreamOutput = &b
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// UserSettings is everything stored for one user
type UserSettings struct {
	Global Settings            `json:"global"`
	Chats  map[string]Settings `json:"chats"`
}

// Store owns all settings records and writes the whole map back to the
// document store after every mutation.
type Store struct {
	mu    sync.RWMutex
	docs  db.Store
	users map[string]*UserSettings
}

// Load reads the settings document, starting empty when none exists
func Load(docs db.Store) (*Store, error) {
	users := make(map[string]*UserSettings)
	if _, err := docs.Load(db.DocSettings, &users); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	for _, u := range users {
		if u.Chats == nil {
			u.Chats = make(map[string]Settings)
		}
	}
	return &Store{docs: docs, users: users}, nil
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Get resolves a setting for the user in the given chat. A chat override
// containing the key wins, then the global record, then def. Users with no
// record at all always get def.
func (s *Store) Get(userID, chatID int64, key Key, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[idKey(userID)]
	if !ok {
		return def
	}
	if chat, ok := user.Chats[idKey(chatID)]; ok {
		if v, ok := chat.lookup(key); ok {
			return v
		}
	}
	if v, ok := user.Global.lookup(key); ok {
		return v
	}
	return def
}

// Set writes a setting. In the user's private chat (chatID == userID) the
// global record is written; anywhere else a chat override is created or
// updated.
func (s *Store) Set(userID, chatID int64, key Key, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[idKey(userID)]
	if !ok {
		user = &UserSettings{Chats: make(map[string]Settings)}
	}

	if chatID == userID {
		if err := user.Global.assign(key, value); err != nil {
			return err
		}
	} else {
		chat := user.Chats[idKey(chatID)]
		if err := chat.assign(key, value); err != nil {
			return err
		}
		user.Chats[idKey(chatID)] = chat
	}
	s.users[idKey(userID)] = user

	return s.save()
}

// ReplaceModel rewrites every record whose model is old to replacement and
// returns how many records changed.
func (s *Store) ReplaceModel(old, replacement string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, user := range s.users {
		if user.Global.Model != nil && *user.Global.Model == old {
			user.Global.Model = &replacement
			changed++
		}
		for id, chat := range user.Chats {
			if chat.Model != nil && *chat.Model == old {
				chat.Model = &replacement
				user.Chats[id] = chat
				changed++
			}
		}
	}

	if err := s.save(); err != nil {
		return changed, err
	}
	return changed, nil
}

// save must be called with mu held
func (s *Store) save() error {
	if err := s.docs.Save(db.DocSettings, s.users); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
