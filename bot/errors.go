package bot

// Kind classifies a handler failure so the dispatcher can pick the reply
// and decide whether to log it.
type Kind int

const (
	// KindAuthorization means the user or chat is not permitted
	KindAuthorization Kind = iota
	// KindValidation means bad arguments; the message lists valid options
	KindValidation
	// KindRemote means a call to the LLM service, Telegram or storage failed
	KindRemote
	// KindInfo is a plain informational outcome such as nothing to redo
	KindInfo
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindRemote:
		return "remote"
	case KindInfo:
		return "info"
	}
	return "unknown"
}

// Error is what command and message handlers return instead of replying
// with failure text themselves
type Error struct {
	Kind    Kind
	Message string // user-facing text
	Err     error  // cause, never shown to non-admins

	editID int // placeholder message to overwrite instead of replying
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// in reports the error by editing the given message
func (e *Error) in(messageID int) *Error {
	e.editID = messageID
	return e
}

func denied(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func invalid(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func failed(err error) *Error {
	return &Error{Kind: KindRemote, Message: textTemporaryFailure, Err: err}
}

func info(msg string) *Error {
	return &Error{Kind: KindInfo, Message: msg}
}
