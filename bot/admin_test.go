package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminCommandsRejectOthers(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.access.Add(7))

	for _, name := range []string{"set_api_key", "add_user", "remove_user", "add_model", "remove_model", "list_users"} {
		h.bot.Handle(ctx, command(7, 7, name, "x"))
		assert.Equal(t, textAdminOnly, h.msgr.last().Text, name)
	}
	assert.Equal(t, []int64{7}, h.access.List())
	assert.Empty(t, h.llm.apiKey)
}

func TestSetAPIKey(t *testing.T) {
	h := newHarness(t)

	h.bot.Handle(ctx, command(adminID, adminID, "set_api_key"))
	assert.Equal(t, "Please provide the new API key.", h.msgr.last().Text)

	h.bot.Handle(ctx, command(adminID, adminID, "set_api_key", "sk-new"))
	assert.Equal(t, "sk-new", h.llm.apiKey)

	ops := h.msgr.all()
	require.GreaterOrEqual(t, len(ops), 2)
	assert.Equal(t, "delete", ops[len(ops)-2].Op)
	assert.Equal(t, "The API key has been updated.", ops[len(ops)-1].Text)
}

func TestAddRemoveListUsers(t *testing.T) {
	h := newHarness(t)

	h.bot.Handle(ctx, command(adminID, adminID, "list_users"))
	assert.Equal(t, "No users are allowed yet.", h.msgr.last().Text)

	h.bot.Handle(ctx, command(adminID, adminID, "add_user", "abc"))
	assert.Equal(t, `"abc" is not a valid user id.`, h.msgr.last().Text)

	h.bot.Handle(ctx, command(adminID, adminID, "add_user", "9"))
	h.bot.Handle(ctx, command(adminID, adminID, "add_user", "3"))
	h.bot.Handle(ctx, command(adminID, adminID, "list_users"))
	assert.Equal(t, "Allowed users: 3, 9", h.msgr.last().Text)

	h.bot.Handle(ctx, command(adminID, adminID, "remove_user", "9"))
	assert.Equal(t, "User 9 has been removed from the allow-list.", h.msgr.last().Text)

	h.bot.Handle(ctx, command(adminID, adminID, "remove_user", "9"))
	assert.Equal(t, "User 9 is not in the allow-list.", h.msgr.last().Text)

	h.bot.Handle(ctx, command(adminID, adminID, "remove_user"))
	assert.Equal(t, "Please provide exactly one user id.", h.msgr.last().Text)
}

func TestAddRemoveModel(t *testing.T) {
	h := newHarness(t)

	h.bot.Handle(ctx, command(adminID, adminID, "add_model", "gpt-4"))
	assert.Equal(t, "Model gpt-4 already exists.", h.msgr.last().Text)

	h.bot.Handle(ctx, command(adminID, adminID, "add_model", "gpt-4o"))
	assert.Equal(t, []string{"gpt-3.5-turbo", "gpt-4", "gpt-4o"}, h.registry.List())

	h.bot.Handle(ctx, command(adminID, adminID, "remove_model", "claude"))
	assert.Equal(t, "Model claude is not in the available models.", h.msgr.last().Text)

	h.bot.Handle(ctx, command(adminID, adminID, "remove_model", "gpt-3.5-turbo"))
	h.bot.Handle(ctx, command(adminID, adminID, "remove_model", "gpt-4"))
	h.bot.Handle(ctx, command(adminID, adminID, "remove_model", "gpt-4o"))
	assert.Contains(t, h.msgr.last().Text, "only model left")
	assert.Equal(t, []string{"gpt-4o"}, h.registry.List())
}
