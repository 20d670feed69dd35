package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"tg-llm-proxy/access"
	"tg-llm-proxy/registry"
)

func (b *Bot) cmdSetAPIKey(ctx context.Context, upd Update) *Error {
	if len(upd.Args) != 1 {
		return invalid("Please provide the new API key.")
	}

	b.llm.SetAPIKey(upd.Args[0])
	b.log.Info("API key replaced by admin %d", upd.UserID)

	// the command message holds the key in clear text
	if err := b.msgr.Delete(ctx, upd.ChatID, upd.MessageID); err != nil {
		b.log.Warn("Failed to delete API key message in chat %d: %v", upd.ChatID, err)
	}
	if _, err := b.msgr.Reply(ctx, upd.ChatID, 0, "The API key has been updated.", false); err != nil {
		return failed(err)
	}
	return nil
}

func parseUserID(args []string) (int64, *Error) {
	if len(args) != 1 {
		return 0, invalid("Please provide exactly one user id.")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, invalid(fmt.Sprintf("%q is not a valid user id.", args[0]))
	}
	return id, nil
}

func (b *Bot) cmdAddUser(ctx context.Context, upd Update) *Error {
	id, verr := parseUserID(upd.Args)
	if verr != nil {
		return verr
	}
	if err := b.access.Add(id); err != nil {
		return failed(err)
	}
	b.log.Info("User %d added to the allow-list", id)
	return b.reply(ctx, upd, fmt.Sprintf("User %d has been added to the allow-list.", id))
}

func (b *Bot) cmdRemoveUser(ctx context.Context, upd Update) *Error {
	id, verr := parseUserID(upd.Args)
	if verr != nil {
		return verr
	}
	if err := b.access.Remove(id); err != nil {
		if errors.Is(err, access.ErrNotFound) {
			return invalid(fmt.Sprintf("User %d is not in the allow-list.", id))
		}
		return failed(err)
	}
	b.log.Info("User %d removed from the allow-list", id)
	return b.reply(ctx, upd, fmt.Sprintf("User %d has been removed from the allow-list.", id))
}

func (b *Bot) cmdListUsers(ctx context.Context, upd Update) *Error {
	ids := b.access.List()
	if len(ids) == 0 {
		return b.reply(ctx, upd, "No users are allowed yet.")
	}
	return b.reply(ctx, upd, "Allowed users: "+joinIDs(ids))
}

func (b *Bot) cmdAddModel(ctx context.Context, upd Update) *Error {
	if len(upd.Args) != 1 {
		return invalid("Please provide the model name to add.")
	}

	name := upd.Args[0]
	if err := b.registry.Add(name); err != nil {
		if errors.Is(err, registry.ErrExists) {
			return invalid(fmt.Sprintf("Model %s already exists.", name))
		}
		return failed(err)
	}
	return b.reply(ctx, upd, fmt.Sprintf("Model %s has been added to the available models.", name))
}

func (b *Bot) cmdRemoveModel(ctx context.Context, upd Update) *Error {
	if len(upd.Args) != 1 {
		return invalid("Please provide the model name to remove.")
	}

	name := upd.Args[0]
	n, err := b.registry.Remove(name)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return invalid(fmt.Sprintf("Model %s is not in the available models.", name))
	case errors.Is(err, registry.ErrLastModel):
		return invalid(fmt.Sprintf("Model %s is the only model left and cannot be removed.", name))
	case err != nil:
		return failed(err)
	}

	b.log.Info("Model %s removed, %d settings moved to %s", name, n, b.registry.Default())
	return b.reply(ctx, upd, fmt.Sprintf(
		"Model %s has been removed. Users of this model now use the default model %s.", name, b.registry.Default()))
}
