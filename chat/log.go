package chat

import (
	"strings"
	"time"
)

// Log is the ordered message history for the conversation currently on
// screen. It owns the optimistic append on send, the substitution of a
// failure notice when the backend cannot answer, and wholesale replacement
// when the user switches sessions. The backend is the durable store; the Log
// only ever holds the active session in memory.
//
// At most one send is in flight: Begin refuses input while a previous send
// is unresolved, so messages always land in issue order.
type Log struct {
	messages []Message
	sending  bool
	now      func() time.Time
}

// NewLog creates a log seeded with the assistant greeting.
func NewLog() *Log {
	l := &Log{now: time.Now}
	l.Reset()
	return l
}

// Begin starts a send: it trims the input, appends the user message
// optimistically and takes the sending lock. It returns false without
// changing any state when the input is empty or a send is already in
// flight — both are silent no-ops, not errors.
func (l *Log) Begin(text string) (Message, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || l.sending {
		return Message{}, false
	}

	msg := NewMessage(RoleUser, trimmed, l.now())
	l.messages = append(l.messages, msg)
	l.sending = true
	return msg, true
}

// Succeed resolves the in-flight send with the backend's reply.
func (l *Log) Succeed(reply string) {
	if !l.sending {
		return
	}
	l.messages = append(l.messages, NewMessage(RoleAssistant, reply, l.now()))
	l.sending = false
}

// Fail resolves the in-flight send with the fixed failure notice. The
// optimistic user message stays: the user always sees what they sent.
func (l *Log) Fail() {
	if !l.sending {
		return
	}
	l.messages = append(l.messages, NewMessage(RoleAssistant, FailureNotice, l.now()))
	l.sending = false
}

// Replace installs a fetched history, discarding the current log. An empty
// history (new or never-persisted session) falls back to the greeting.
func (l *Log) Replace(history []Message) {
	if len(history) == 0 {
		l.Reset()
		return
	}
	l.messages = append([]Message(nil), history...)
	l.sending = false
}

// Reset returns the log to a fresh greeting-only conversation.
func (l *Log) Reset() {
	l.messages = []Message{NewMessage(RoleAssistant, Greeting, l.now())}
	l.sending = false
}

// Messages returns a copy of the message sequence in display order.
func (l *Log) Messages() []Message {
	return append([]Message(nil), l.messages...)
}

// Sending reports whether a send is currently in flight.
func (l *Log) Sending() bool {
	return l.sending
}
