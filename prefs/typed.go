package prefs

// Model resolves the model setting
func (s *Store) Model(userID, chatID int64, def string) string {
	v, _ := s.Get(userID, chatID, KeyModel, def).(string)
	return v
}

// Voice resolves the voice setting
func (s *Store) Voice(userID, chatID int64, def string) string {
	v, _ := s.Get(userID, chatID, KeyVoice, def).(string)
	return v
}

// StreamOutput resolves the stream_output setting
func (s *Store) StreamOutput(userID, chatID int64, def bool) bool {
	v, _ := s.Get(userID, chatID, KeyStreamOutput, def).(bool)
	return v
}

// SetModel writes the model setting
func (s *Store) SetModel(userID, chatID int64, model string) error {
	return s.Set(userID, chatID, KeyModel, model)
}

// SetVoice writes the voice setting
func (s *Store) SetVoice(userID, chatID int64, voice string) error {
	return s.Set(userID, chatID, KeyVoice, voice)
}

// SetStreamOutput writes the stream_output setting
func (s *Store) SetStreamOutput(userID, chatID int64, on bool) error {
	return s.Set(userID, chatID, KeyStreamOutput, on)
}

// ToggleStreamOutput flips the effective stream_output value in the scope
// of chatID and returns the new value.
func (s *Store) ToggleStreamOutput(userID, chatID int64) (bool, error) {
	on := !s.StreamOutput(userID, chatID, false)
	if err := s.SetStreamOutput(userID, chatID, on); err != nil {
		return !on, err
	}
	return on, nil
}
