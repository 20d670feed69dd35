package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-llm-proxy/db"
)

const admin int64 = 42

func newControl(t *testing.T) (*Control, db.Store) {
	t.Helper()
	docs, err := db.NewFileStore(t.TempDir())
	require.NoError(t, err)
	c, err := Load(docs, admin)
	require.NoError(t, err)
	return c, docs
}

func TestIsAllowed(t *testing.T) {
	c, _ := newControl(t)
	require.NoError(t, c.Add(7))

	assert.True(t, c.IsAllowed(7, 7), "allow-listed user")
	assert.True(t, c.IsAllowed(admin, admin), "admin")
	assert.True(t, c.IsAllowed(99, -100), "anyone in a group")
	assert.False(t, c.IsAllowed(99, 99), "stranger in private chat")
	assert.False(t, c.IsAllowed(99, 7), "stranger in someone else's private chat")
}

func TestIsAdmin(t *testing.T) {
	c, _ := newControl(t)
	assert.True(t, c.IsAdmin(admin))
	assert.False(t, c.IsAdmin(7))
}

func TestRemove(t *testing.T) {
	c, _ := newControl(t)
	require.NoError(t, c.Add(7))

	require.NoError(t, c.Remove(7))
	assert.False(t, c.IsAllowed(7, 7))

	assert.ErrorIs(t, c.Remove(7), ErrNotFound)
}

func TestAdd_Idempotent(t *testing.T) {
	c, _ := newControl(t)
	require.NoError(t, c.Add(7))
	require.NoError(t, c.Add(7))
	assert.Equal(t, []int64{7}, c.List())
}

func TestLoad_RoundTrip(t *testing.T) {
	c, docs := newControl(t)
	require.NoError(t, c.Add(30))
	require.NoError(t, c.Add(7))
	require.NoError(t, c.Add(12))

	reloaded, err := Load(docs, admin)
	require.NoError(t, err)
	assert.Equal(t, c.allowed, reloaded.allowed)
	assert.Equal(t, []int64{7, 12, 30}, reloaded.List())
}
