package registry

import (
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrInvalidVoice is returned for voices outside the supported set
var ErrInvalidVoice = errors.New("invalid voice")

// DefaultVoice is used when a user never picked one
const DefaultVoice = string(openai.VoiceAlloy)

// Voices is the closed set of speech voices
var Voices = []string{
	string(openai.VoiceAlloy),
	string(openai.VoiceEcho),
	string(openai.VoiceFable),
	string(openai.VoiceOnyx),
	string(openai.VoiceNova),
	string(openai.VoiceShimmer),
}

// ValidateVoice rejects anything outside Voices
func ValidateVoice(voice string) error {
	for _, v := range Voices {
		if v == voice {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidVoice, voice)
}
