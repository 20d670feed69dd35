package bot

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	textDenied           = "Sorry, you are not allowed to use this bot."
	textAdminOnly        = "Only the administrator can use this command."
	textTemporaryFailure = "Sorry, something went wrong while processing your request. Please try again later."
	textNothingToRedo    = "There is no message to redo."
	textProcessing       = "Processing your request, please wait..."
	textRegenerating     = "Regenerating the answer, please wait..."
	textDrawing          = "Drawing, please wait..."
)

const helpText = `Available commands:
/start - start the bot and show this help
/help - show this help
/redo - regenerate the last answer
/chat <message> - start a new conversation (works in groups too)
/draw <prompt> - generate an image
/set_model <model> - choose the model for this chat
/list_models - list available models
/current_settings - show the settings in effect here
/set_voice <voice> - choose the voice for spoken replies
/toggle_stream - turn streamed output on or off

Send a message to start a new conversation, reply to one of my messages to continue it. In groups, reply to me or use /chat.`

const adminHelpText = `

Admin commands:
/set_api_key <key> - replace the API key
/add_user <user_id> - allow a user
/remove_user <user_id> - remove a user
/add_model <model> - add a model
/remove_model <model> - remove a model
/list_users - list allowed users`

func help(isAdmin bool) string {
	if isAdmin {
		return helpText + adminHelpText
	}
	return helpText
}

func scopeSuffix(userID, chatID int64) string {
	if userID == chatID {
		return ""
	}
	return " in this chat"
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func currentSettings(model, voice string, stream bool) string {
	return fmt.Sprintf("Current settings:\nModel: %s\nVoice: %s\nStreamed output: %s", model, voice, onOff(stream))
}
