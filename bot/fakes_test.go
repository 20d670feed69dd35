package bot

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"tg-llm-proxy/access"
	"tg-llm-proxy/db"
	"tg-llm-proxy/llm"
	"tg-llm-proxy/prefs"
	"tg-llm-proxy/registry"
	"tg-llm-proxy/session"
	"tg-llm-proxy/utils"
)

const adminID int64 = 42

type sent struct {
	Op        string
	ChatID    int64
	MessageID int
	Text      string
	Markdown  bool
}

type fakeMessenger struct {
	mu          sync.Mutex
	ops         []sent
	nextID      int
	files       map[string][]byte
	failEdits   int // number of upcoming edits to reject
	rejectMD    bool
	failReplies bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 1000, files: map[string][]byte{}}
}

func (m *fakeMessenger) Reply(_ context.Context, chatID int64, replyTo int, text string, markdown bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReplies {
		return 0, errors.New("telegram down")
	}
	m.nextID++
	m.ops = append(m.ops, sent{"reply", chatID, m.nextID, text, markdown})
	return m.nextID, nil
}

func (m *fakeMessenger) Edit(_ context.Context, chatID int64, messageID int, text string, markdown bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEdits > 0 {
		m.failEdits--
		return errors.New("edit rejected")
	}
	if markdown && m.rejectMD {
		return errors.New("can't parse entities")
	}
	m.ops = append(m.ops, sent{"edit", chatID, messageID, text, markdown})
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, sent{Op: "delete", ChatID: chatID, MessageID: messageID})
	return nil
}

func (m *fakeMessenger) SendVoice(_ context.Context, chatID int64, replyTo int, audio []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, sent{Op: "voice", ChatID: chatID, Text: string(audio)})
	return nil
}

func (m *fakeMessenger) SendPhoto(_ context.Context, chatID int64, replyTo int, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, sent{Op: "photo", ChatID: chatID, Text: url})
	return nil
}

func (m *fakeMessenger) Download(_ context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *fakeMessenger) all() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sent(nil), m.ops...)
}

func (m *fakeMessenger) last() sent {
	ops := m.all()
	if len(ops) == 0 {
		return sent{}
	}
	return ops[len(ops)-1]
}

func (m *fakeMessenger) texts() []string {
	var out []string
	for _, op := range m.all() {
		out = append(out, op.Text)
	}
	return out
}

type chatCall struct {
	Model    string
	Messages []llm.Message
}

type fakeLLM struct {
	mu       sync.Mutex
	replies  []string
	chatErr  error
	calls    []chatCall
	apiKey   string
	speakErr error
	voices   []string
}

func (f *fakeLLM) Chat(_ context.Context, model string, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, chatCall{model, append([]llm.Message(nil), messages...)})
	if f.chatErr != nil {
		return "", f.chatErr
	}
	if len(f.replies) == 0 {
		return "ok", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeLLM) Transcribe(_ context.Context, audio []byte, filename string) (string, error) {
	return "transcribed: " + string(audio), nil
}

func (f *fakeLLM) Speak(_ context.Context, voice, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return nil, f.speakErr
	}
	f.voices = append(f.voices, voice)
	return []byte("audio:" + text), nil
}

func (f *fakeLLM) Draw(_ context.Context, prompt string) (string, error) {
	return "https://img.example/" + prompt, nil
}

func (f *fakeLLM) SetAPIKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = key
}

func (f *fakeLLM) lastCall() chatCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return chatCall{}
	}
	return f.calls[len(f.calls)-1]
}

type harness struct {
	bot      *Bot
	msgr     *fakeMessenger
	llm      *fakeLLM
	prefs    *prefs.Store
	sessions *session.Manager
	access   *access.Control
	registry *registry.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	docs, err := db.NewFileStore(t.TempDir())
	require.NoError(t, err)
	p, err := prefs.Load(docs)
	require.NoError(t, err)
	a, err := access.Load(docs, adminID)
	require.NoError(t, err)
	r, err := registry.Load(docs, p)
	require.NoError(t, err)

	h := &harness{
		msgr:     newFakeMessenger(),
		llm:      &fakeLLM{},
		prefs:    p,
		sessions: session.NewManager(),
		access:   a,
		registry: r,
	}
	h.bot = New(Deps{
		Messenger: h.msgr,
		LLM:       h.llm,
		Prefs:     p,
		Sessions:  h.sessions,
		Access:    a,
		Registry:  r,
		Logger:    utils.NewWriterLogger(io.Discard, "debug"),
		Options:   Options{ChunkSize: 10, ChunkDelay: 0},
	})
	return h
}

func text(userID, chatID int64, body string) Update {
	return Update{UserID: userID, ChatID: chatID, MessageID: 1, Text: body}
}

func reply(userID, chatID int64, body string) Update {
	u := text(userID, chatID, body)
	u.IsReplyToBot = true
	return u
}

func command(userID, chatID int64, name string, args ...string) Update {
	u := Update{UserID: userID, ChatID: chatID, MessageID: 1, Command: name, Args: args}
	for i, a := range args {
		if i > 0 {
			u.ArgText += " "
		}
		u.ArgText += a
	}
	return u
}
