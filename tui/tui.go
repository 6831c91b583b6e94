// Package tui is the terminal front end: a sidebar with PDF sources,
// uploaded documents and remote chat history, a conversation panel, and a
// paginated text preview of the selected document. All core state machines
// (conversation log, session resolver, document registry, preview machine)
// are mutated exclusively from Update; network and disk work runs in
// commands whose results come back as messages.
package tui

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"docchat/backend"
	"docchat/chat"
	"docchat/config"
	"docchat/document"
	"docchat/logging"
	"docchat/preview"
	"docchat/session"
)

type focusArea int

const (
	focusSources focusArea = iota
	focusDocuments
	focusHistory
	focusInput
)

// Model is the bubbletea model for the whole client.
type Model struct {
	cfg    *config.Config
	client *backend.Client

	resolver *session.Resolver
	registry *document.Registry
	log      *chat.Log
	machine  *preview.Machine

	input    textarea.Model
	chatView viewport.Model
	spin     spinner.Model

	sources       []string
	sessions      []backend.SessionSummary
	watcher       *fsnotify.Watcher
	historyLoaded bool

	focus         focusArea
	sourceCursor  int
	docCursor     int
	histCursor    int
	width, height int

	// activeDocID is the backend's id for the last uploaded document,
	// attached to outbound chat turns for retrieval grounding.
	activeDocID string

	// sendSession / fetchSession track the session id an in-flight call was
	// issued under, so completions that outlived a session switch are
	// detected and discarded.
	sendSession  string
	fetchSession string

	status string
	fault  string
}

// NewModel wires the client together. resumeSession may be empty; when set,
// the model starts inside that existing session.
func NewModel(cfg *config.Config, resumeSession string) (*Model, error) {
	registry, err := document.NewRegistry()
	if err != nil {
		return nil, err
	}

	resolver := session.NewResolver()
	if resumeSession != "" {
		resolver.Adopt(resumeSession)
	}

	input := textarea.New()
	input.Placeholder = "Send a message..."
	input.SetHeight(1)
	input.CharLimit = 4000
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if werr := watcher.Add(cfg.SourcesDir); werr != nil {
			logging.L().Warn("cannot watch sources directory", zap.String("dir", cfg.SourcesDir), zap.Error(werr))
			watcher.Close()
			watcher = nil
		}
	} else {
		logging.L().Warn("fsnotify unavailable", zap.Error(err))
		watcher = nil
	}

	m := &Model{
		cfg:      cfg,
		client:   backend.NewClient(cfg.BackendURL, cfg.Timeout()),
		resolver: resolver,
		registry: registry,
		log:      chat.NewLog(),
		machine:  preview.NewMachine(),
		input:    input,
		spin:     spin,
		watcher:  watcher,
		focus:    focusSources,
	}
	return m, nil
}

// Close releases local resources (document handles, the directory watcher).
func (m *Model) Close() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	if err := m.registry.Close(); err != nil {
		logging.L().Warn("registry cleanup failed", zap.Error(err))
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		listSourcesCmd(m.cfg.SourcesDir),
		fetchHistoryCmd(m.client),
		m.spin.Tick,
	}
	if m.watcher != nil {
		cmds = append(cmds, watchSourcesCmd(m.watcher))
	}
	if id, state := m.resolver.Current(); state == session.StateConfirmed {
		m.fetchSession = id
		cmds = append(cmds, fetchMessagesCmd(m.client, id))
	}
	return tea.Batch(cmds...)
}

// Update applies one message. A panic while handling a message is caught,
// logged and turned into the fault view instead of tearing down the
// terminal — the last-resort safety net, not a substitute for error
// handling in the handlers themselves.
func (m *Model) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			logging.L().Error("panic in update",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			m.fault = fmt.Sprintf("%v", r)
			model, cmd = m, nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sourcesMsg:
		m.sources = msg
		if m.sourceCursor >= len(m.sources) {
			m.sourceCursor = max(0, len(m.sources)-1)
		}
		return m, nil

	case sourcesChangedMsg:
		cmds := []tea.Cmd{listSourcesCmd(m.cfg.SourcesDir)}
		if m.watcher != nil {
			cmds = append(cmds, watchSourcesCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case historyMsg:
		// History is best-effort: failures arrive here as an empty list.
		m.sessions = msg
		m.historyLoaded = true
		if m.histCursor >= len(m.sessions) {
			m.histCursor = max(0, len(m.sessions)-1)
		}
		return m, nil

	case uploadDoneMsg:
		return m.handleUploadDone(msg)

	case sendDoneMsg:
		return m.handleSendDone(msg)

	case sessionMessagesMsg:
		return m.handleSessionMessages(msg)

	case sessionDeletedMsg:
		if msg.err != nil {
			m.status = "could not delete session"
			logging.L().Warn("delete session failed", zap.String("session", msg.sessionID), zap.Error(msg.err))
			return m, nil
		}
		return m, fetchHistoryCmd(m.client)

	case previewLoadedMsg:
		if msg.err != nil {
			m.machine.LoadFailed(msg.gen)
			m.status = "could not render preview"
			logging.L().Warn("preview load failed", zap.Error(msg.err))
			return m, nil
		}
		m.machine.Loaded(msg.gen, msg.pages)
		return m, nil

	case drainExpiredMsg:
		m.machine.Expire(msg.gen)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.fault != "" {
		switch msg.String() {
		case "r":
			m.fault = ""
			m.status = ""
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.focus = (m.focus + 1) % 4
		if m.focus == focusInput {
			m.input.Focus()
		} else {
			m.input.Blur()
		}
		return m, nil

	case "ctrl+n":
		return m, m.startNewConversation()

	case "ctrl+r":
		m.historyLoaded = false
		return m, fetchHistoryCmd(m.client)

	case "left":
		if m.focus != focusInput {
			m.machine.Prev()
		}
	case "right":
		if m.focus != focusInput {
			m.machine.Next()
		}
	case "+", "=":
		if m.focus != focusInput {
			m.machine.ZoomIn()
		}
	case "-", "_":
		if m.focus != focusInput {
			m.machine.ZoomOut()
		}

	case "up", "k":
		if m.focus == focusInput && msg.String() == "k" {
			break
		}
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		if m.focus == focusInput && msg.String() == "j" {
			break
		}
		m.moveCursor(1)
		return m, nil

	case "enter":
		return m.handleEnter()

	case "delete", "backspace":
		if m.focus == focusHistory && m.histCursor < len(m.sessions) {
			s := m.sessions[m.histCursor]
			return m, deleteSessionCmd(m.client, s.SessionID)
		}
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusSources:
		if m.sourceCursor >= len(m.sources) {
			return m, nil
		}
		return m, m.uploadSource(m.sources[m.sourceCursor])

	case focusDocuments:
		docs := m.registry.Documents()
		if m.docCursor >= len(docs) {
			return m, nil
		}
		m.registry.Select(docs[m.docCursor].ID)
		return m, m.syncPreview()

	case focusHistory:
		if m.histCursor >= len(m.sessions) {
			return m, nil
		}
		return m, m.openSession(m.sessions[m.histCursor].SessionID)

	case focusInput:
		return m, m.submitInput()
	}
	return m, nil
}

// uploadSource stages a local PDF and issues the backend upload without
// blocking the loop. The document is selected and previewable immediately;
// a failed upload leaves it local-only.
func (m *Model) uploadSource(path string) tea.Cmd {
	doc, err := m.registry.Add(path)
	if err != nil {
		m.status = "could not read file"
		logging.L().Warn("stage document failed", zap.String("path", path), zap.Error(err))
		return nil
	}

	sessionID, _ := m.resolver.ResolveForSend()
	m.status = fmt.Sprintf("uploading %s...", doc.Name)
	logging.L().Info("uploading document",
		zap.String("doc", doc.Name),
		zap.String("session", sessionID))

	return tea.Batch(
		uploadCmd(m.client, doc, sessionID),
		m.syncPreview(),
	)
}

func (m *Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	if m.uploadIsStale(msg) {
		logging.L().Info("dropping stale upload result", zap.String("session", msg.sessionID))
		return m, nil
	}

	if msg.err != nil {
		// Degraded mode: the document stays registered and previewable, it
		// just is not retrievable by the backend.
		m.status = "upload failed — document is preview-only"
		logging.L().Error("upload failed", zap.String("doc", msg.doc.Name), zap.Error(msg.err))
		return m, nil
	}

	confirmed := msg.res.SessionID
	if confirmed == "" {
		confirmed = msg.sessionID
	}
	if err := m.resolver.Confirm(confirmed); err != nil {
		m.status = err.Error()
		logging.L().Error("session confirmation conflict", zap.Error(err))
		return m, nil
	}

	m.activeDocID = msg.res.DocumentID
	m.status = fmt.Sprintf("%s ready", msg.doc.Name)
	logging.L().Info("document uploaded",
		zap.String("doc", msg.doc.Name),
		zap.String("document_id", msg.res.DocumentID),
		zap.String("session", confirmed))

	// A brand-new session now exists on the backend; refresh the listing.
	return m, fetchHistoryCmd(m.client)
}

// submitInput runs the optimistic send flow: append the user message, take
// the sending lock, resolve the session id, call the backend.
func (m *Model) submitInput() tea.Cmd {
	msg, ok := m.log.Begin(m.input.Value())
	if !ok {
		return nil
	}
	text := msg.Content
	m.input.Reset()

	sessionID, _ := m.resolver.ResolveForSend()
	m.sendSession = sessionID
	m.refreshChatView()

	return sendCmd(m.client, text, sessionID, m.activeDocID)
}

func (m *Model) handleSendDone(msg sendDoneMsg) (tea.Model, tea.Cmd) {
	if msg.sessionID != m.sendSession {
		// The user switched sessions while this reply was in flight.
		logging.L().Info("dropping stale reply", zap.String("session", msg.sessionID))
		return m, nil
	}
	m.sendSession = ""

	if msg.err != nil {
		m.log.Fail()
		m.refreshChatView()
		logging.L().Error("send failed", zap.Error(msg.err))
		return m, nil
	}

	if err := m.resolver.Confirm(msg.res.SessionID); err != nil {
		m.status = err.Error()
		logging.L().Error("session confirmation conflict", zap.Error(err))
	}
	m.log.Succeed(msg.res.Reply)
	m.refreshChatView()
	return m, nil
}

// openSession resumes a stored conversation: the resolver adopts its id, the
// local document set is discarded, and the log is replaced once the history
// fetch returns.
func (m *Model) openSession(id string) tea.Cmd {
	m.resolver.Adopt(id)
	m.sendSession = ""
	m.fetchSession = id
	m.activeDocID = ""
	if err := m.registry.Clear(); err != nil {
		logging.L().Warn("registry clear failed", zap.Error(err))
	}
	m.status = "loading conversation..."
	return tea.Batch(
		fetchMessagesCmd(m.client, id),
		m.syncPreview(),
	)
}

func (m *Model) handleSessionMessages(msg sessionMessagesMsg) (tea.Model, tea.Cmd) {
	if msg.sessionID != m.fetchSession {
		logging.L().Info("dropping stale history fetch", zap.String("session", msg.sessionID))
		return m, nil
	}
	m.fetchSession = ""
	m.status = ""

	if msg.err != nil {
		// The session may be new or the backend briefly away; fall back to
		// a fresh greeting rather than blocking the conversation.
		m.log.Reset()
		logging.L().Warn("session history unavailable", zap.String("session", msg.sessionID), zap.Error(msg.err))
	} else {
		m.log.Replace(msg.messages)
	}
	m.refreshChatView()
	return m, nil
}

func (m *Model) startNewConversation() tea.Cmd {
	m.resolver.Reset()
	m.sendSession = ""
	m.fetchSession = ""
	m.activeDocID = ""
	if err := m.registry.Clear(); err != nil {
		logging.L().Warn("registry clear failed", zap.Error(err))
	}
	m.log.Reset()
	m.status = "new conversation"
	m.refreshChatView()
	return m.syncPreview()
}

// syncPreview aligns the preview machine with the registry's selection:
// opening loads the selected document, clearing the selection starts the
// drain so the panel can animate out before the document is unmounted.
func (m *Model) syncPreview() tea.Cmd {
	if doc, ok := m.registry.Selected(); ok {
		if mounted, isMounted := m.machine.Document(); isMounted && mounted.ID == doc.ID && m.machine.State() != preview.StateDraining {
			return nil
		}
		gen := m.machine.Open(doc)
		return loadPreviewCmd(doc.Path, gen)
	}

	gen, deadline, ok := m.machine.Close()
	if !ok {
		return nil
	}
	return tea.Tick(time.Until(deadline), func(time.Time) tea.Msg {
		return drainExpiredMsg{gen: gen}
	})
}

// uploadIsStale reports whether an upload completion belongs to a
// conversation that is no longer active. An upload racing a send that
// already confirmed the same backend session is not stale: its confirmation
// is the idempotent second confirm.
func (m *Model) uploadIsStale(msg uploadDoneMsg) bool {
	current, state := m.resolver.Current()
	switch state {
	case session.StateNone:
		return true // the user started over while the upload was in flight
	case session.StateConfirmed:
		return current != msg.sessionID && current != msg.res.SessionID
	default:
		return current != msg.sessionID
	}
}

func (m *Model) moveCursor(delta int) {
	switch m.focus {
	case focusSources:
		m.sourceCursor = clampIndex(m.sourceCursor+delta, len(m.sources))
	case focusDocuments:
		m.docCursor = clampIndex(m.docCursor+delta, len(m.registry.Documents()))
	case focusHistory:
		m.histCursor = clampIndex(m.histCursor+delta, len(m.sessions))
	}
}

func clampIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
