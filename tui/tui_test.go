package tui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/backend"
	"docchat/chat"
	"docchat/config"
	"docchat/preview"
	"docchat/session"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SourcesDir = t.TempDir()
	cfg.BackendURL = "http://localhost:0"

	m, err := NewModel(cfg, "")
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
	return path
}

func TestUploadFlowConfirmsSession(t *testing.T) {
	m := newTestModel(t)
	path := writePDF(t, m.cfg.SourcesDir, "spec.pdf")

	cmd := m.uploadSource(path)
	require.NotNil(t, cmd)

	// Document registered, selected and queued for preview.
	docs := m.registry.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "spec.pdf", docs[0].Name)
	selected, ok := m.registry.Selected()
	require.True(t, ok)
	assert.Equal(t, docs[0].ID, selected.ID)
	assert.Equal(t, preview.StateLoading, m.machine.State())

	// The resolver minted a provisional id for the upload.
	issued, state := m.resolver.Current()
	assert.Equal(t, session.StateProvisional, state)

	// Backend acknowledges with its own canonical session id.
	_, _ = m.Update(uploadDoneMsg{
		doc:       docs[0],
		sessionID: issued,
		res:       backend.UploadResult{DocumentID: "doc-1", Filename: "spec.pdf", SessionID: "s1"},
	})

	id, state := m.resolver.Current()
	assert.Equal(t, "s1", id)
	assert.Equal(t, session.StateConfirmed, state)
	assert.Equal(t, "doc-1", m.activeDocID)
}

func TestUploadFailureKeepsDocumentLocally(t *testing.T) {
	m := newTestModel(t)
	path := writePDF(t, m.cfg.SourcesDir, "spec.pdf")

	require.NotNil(t, m.uploadSource(path))
	docs := m.registry.Documents()
	issued, _ := m.resolver.Current()

	_, _ = m.Update(uploadDoneMsg{
		doc:       docs[0],
		sessionID: issued,
		err:       errors.New("connection refused"),
	})

	// Degraded mode: still registered and selected, but flagged.
	require.Len(t, m.registry.Documents(), 1)
	_, ok := m.registry.Selected()
	assert.True(t, ok)
	assert.Contains(t, m.status, "preview-only")
	assert.Empty(t, m.activeDocID)
}

func TestUploadResultAfterNewConversationDropped(t *testing.T) {
	m := newTestModel(t)
	path := writePDF(t, m.cfg.SourcesDir, "spec.pdf")

	require.NotNil(t, m.uploadSource(path))
	docs := m.registry.Documents()
	issued, _ := m.resolver.Current()

	_ = m.startNewConversation()

	_, _ = m.Update(uploadDoneMsg{
		doc:       docs[0],
		sessionID: issued,
		res:       backend.UploadResult{DocumentID: "doc-1", SessionID: "s1"},
	})

	_, state := m.resolver.Current()
	assert.Equal(t, session.StateNone, state)
	assert.Empty(t, m.activeDocID)
}

func TestSendFlow(t *testing.T) {
	m := newTestModel(t)
	m.layoutForTest()

	m.input.SetValue("hello")
	cmd := m.submitInput()
	require.NotNil(t, cmd)

	// Optimistic append under the sending lock.
	msgs := m.log.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.True(t, m.log.Sending())

	issued := m.sendSession
	require.NotEmpty(t, issued)

	_, _ = m.Update(sendDoneMsg{
		sessionID: issued,
		res:       backend.SendResult{SessionID: "s1", Reply: "hi there"},
	})

	msgs = m.log.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi there", msgs[2].Content)
	assert.False(t, m.log.Sending())

	// The confirmed id is reused for the next send, not a new provisional.
	m.input.SetValue("again")
	require.NotNil(t, m.submitInput())
	assert.Equal(t, "s1", m.sendSession)
}

func TestSendFailureAppendsNotice(t *testing.T) {
	m := newTestModel(t)
	m.layoutForTest()

	m.input.SetValue("hello")
	require.NotNil(t, m.submitInput())
	issued := m.sendSession

	_, _ = m.Update(sendDoneMsg{sessionID: issued, err: errors.New("timeout")})

	msgs := m.log.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, chat.FailureNotice, msgs[2].Content)
	assert.False(t, m.log.Sending())

	// The lock is released; a following send is accepted.
	m.input.SetValue("retry")
	assert.NotNil(t, m.submitInput())
}

func TestEmptySendIsNoop(t *testing.T) {
	m := newTestModel(t)
	m.layoutForTest()

	for _, input := range []string{"", "   "} {
		m.input.SetValue(input)
		assert.Nil(t, m.submitInput())
	}
	assert.Len(t, m.log.Messages(), 1)
}

func TestStaleReplyAfterSessionSwitchDropped(t *testing.T) {
	m := newTestModel(t)
	m.layoutForTest()

	m.input.SetValue("hello")
	require.NotNil(t, m.submitInput())
	issued := m.sendSession

	// User opens a stored session while the reply is in flight.
	_ = m.openSession("other-session")
	_, _ = m.Update(sessionMessagesMsg{
		sessionID: "other-session",
		messages: []chat.Message{
			{ID: "m1", Role: chat.RoleUser, Content: "old"},
			{ID: "m2", Role: chat.RoleAssistant, Content: "older reply"},
		},
	})

	before := m.log.Messages()
	_, _ = m.Update(sendDoneMsg{
		sessionID: issued,
		res:       backend.SendResult{SessionID: issued, Reply: "too late"},
	})

	// The stale reply never reaches the replaced log.
	assert.Equal(t, before, m.log.Messages())
	id, _ := m.resolver.Current()
	assert.Equal(t, "other-session", id)
}

func TestOpenSessionClearsDocumentsAndFetches(t *testing.T) {
	m := newTestModel(t)
	m.layoutForTest()
	path := writePDF(t, m.cfg.SourcesDir, "spec.pdf")
	require.NotNil(t, m.uploadSource(path))

	cmd := m.openSession("s9")
	require.NotNil(t, cmd)

	assert.Empty(t, m.registry.Documents())
	id, state := m.resolver.Current()
	assert.Equal(t, "s9", id)
	assert.Equal(t, session.StateConfirmed, state)
	assert.Empty(t, m.activeDocID)
}

func TestSessionHistoryErrorFallsBackToGreeting(t *testing.T) {
	m := newTestModel(t)
	m.layoutForTest()

	_ = m.openSession("s9")
	_, _ = m.Update(sessionMessagesMsg{sessionID: "s9", err: errors.New("boom")})

	msgs := m.log.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, chat.Greeting, msgs[0].Content)
}

func TestSelectionToggleDrivesPreview(t *testing.T) {
	m := newTestModelWithDoc(t)
	doc := m.registry.Documents()[0]
	gen := m.machine.Open(doc)
	m.machine.Loaded(gen, []string{"page one"})

	// Toggling the selected document off starts the drain.
	m.registry.Select(doc.ID)
	cmd := m.syncPreview()
	require.NotNil(t, cmd)
	assert.Equal(t, preview.StateDraining, m.machine.State())

	// Re-selecting before the drain expires reopens without closing.
	m.registry.Select(doc.ID)
	cmd = m.syncPreview()
	require.NotNil(t, cmd)
	assert.Equal(t, preview.StateLoading, m.machine.State())
}

func TestHistoryFailClosedListStillUsable(t *testing.T) {
	m := newTestModel(t)

	_, _ = m.Update(historyMsg(nil))
	assert.True(t, m.historyLoaded)
	assert.Empty(t, m.sessions)
}

func newTestModelWithDoc(t *testing.T) *Model {
	t.Helper()
	m := newTestModel(t)
	path := writePDF(t, m.cfg.SourcesDir, "a.pdf")
	_, err := m.registry.Add(path)
	require.NoError(t, err)
	return m
}

// layoutForTest gives the panels a size without a real terminal.
func (m *Model) layoutForTest() {
	m.width = 120
	m.height = 40
	m.layout()
}
