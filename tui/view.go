package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"docchat/preview"
)

const sidebarWidth = 32

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2B6CB0")).
			Padding(0, 1)

	sidebarStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#4A5568")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A0AEC0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2B6CB0"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#63B3ED")).
			Bold(true)

	userMsgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#63B3ED")).
			Bold(true)

	assistantMsgStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#E2E8F0"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#718096"))

	previewStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#805AD5")).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#48BB78")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0AEC0"))

	faultStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#F56565")).
			Padding(1, 2)
)

// layout resizes the panels after a terminal resize.
func (m *Model) layout() {
	chatWidth := m.width - sidebarWidth - m.previewWidth()
	if chatWidth < 20 {
		chatWidth = 20
	}
	chatHeight := m.height - 7
	if chatHeight < 5 {
		chatHeight = 5
	}

	if m.chatView.Width == 0 {
		m.chatView = viewport.New(chatWidth, chatHeight)
	} else {
		m.chatView.Width = chatWidth
		m.chatView.Height = chatHeight
	}
	m.input.SetWidth(chatWidth - 4)
	m.refreshChatView()
}

// previewWidth is the preview panel's share of the terminal. Zero while the
// panel is closed; during Draining it stays allocated so the panel does not
// pop out before the grace interval elapses.
func (m *Model) previewWidth() int {
	if _, mounted := m.machine.Document(); !mounted {
		return 0
	}
	w := (m.width - sidebarWidth) / 2
	if w < 24 {
		w = 24
	}
	return w
}

func (m *Model) refreshChatView() {
	if m.chatView.Width == 0 {
		return
	}

	var b strings.Builder
	for _, msg := range m.log.Messages() {
		var role string
		if msg.Role == "user" {
			role = userMsgStyle.Render("You")
		} else {
			role = assistantMsgStyle.Render("Assistant")
		}
		ts := timestampStyle.Render(msg.Timestamp.Format("15:04"))
		b.WriteString(fmt.Sprintf("%s %s\n", role, ts))
		b.WriteString(wrapText(msg.Content, m.chatView.Width-2))
		b.WriteString("\n\n")
	}
	m.chatView.SetContent(b.String())
	m.chatView.GotoBottom()
}

func (m *Model) View() string {
	if m.fault != "" {
		return faultStyle.Render(fmt.Sprintf(
			"Something went wrong\n\n%s\n\nPress r to reset, q to quit.", m.fault))
	}
	if m.width == 0 {
		return "starting..."
	}

	columns := []string{m.renderSidebar()}
	if pv := m.renderPreview(); pv != "" {
		columns = append(columns, pv)
	}
	columns = append(columns, m.renderChat())

	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func (m *Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("docchat") + "\n\n")

	b.WriteString(m.sectionHeader("Sources", focusSources) + "\n")
	if len(m.sources) == 0 {
		b.WriteString(statusStyle.Render("  no PDFs found") + "\n")
	}
	for i, src := range m.sources {
		b.WriteString(m.listLine(baseName(src), i == m.sourceCursor && m.focus == focusSources, false) + "\n")
	}

	b.WriteString("\n" + m.sectionHeader("Documents", focusDocuments) + "\n")
	docs := m.registry.Documents()
	selected, hasSelection := m.registry.Selected()
	if len(docs) == 0 {
		b.WriteString(statusStyle.Render("  nothing uploaded yet") + "\n")
	}
	for i, doc := range docs {
		isSelected := hasSelection && selected.ID == doc.ID
		b.WriteString(m.listLine(doc.Name, i == m.docCursor && m.focus == focusDocuments, isSelected) + "\n")
	}

	b.WriteString("\n" + m.sectionHeader("Chat History", focusHistory) + "\n")
	if !m.historyLoaded {
		b.WriteString(statusStyle.Render("  loading...") + "\n")
	} else if len(m.sessions) == 0 {
		b.WriteString(statusStyle.Render("  chat history is empty") + "\n")
	}
	activeID, _ := m.resolver.Current()
	for i, s := range m.sessions {
		label := s.Preview
		if label == "" {
			label = s.SessionID
		}
		b.WriteString(m.listLine(label, i == m.histCursor && m.focus == focusHistory, s.SessionID == activeID) + "\n")
	}

	return sidebarStyle.
		Width(sidebarWidth - 2).
		Height(m.height - 2).
		Render(b.String())
}

func (m *Model) sectionHeader(name string, area focusArea) string {
	if m.focus == area {
		return cursorStyle.Render("▸ " + name)
	}
	return sectionStyle.Render("  " + name)
}

func (m *Model) listLine(label string, underCursor, selected bool) string {
	label = truncate(label, sidebarWidth-8)
	prefix := "  "
	if underCursor {
		prefix = cursorStyle.Render("> ")
	}
	if selected {
		return prefix + selectedStyle.Render(label)
	}
	return prefix + label
}

func (m *Model) renderPreview() string {
	doc, mounted := m.machine.Document()
	if !mounted {
		return ""
	}
	width := m.previewWidth()

	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(doc.Name, width-6)) + "\n\n")

	switch m.machine.State() {
	case preview.StateLoading:
		b.WriteString(m.spin.View() + " rendering...\n")
	case preview.StateReady, preview.StateDraining:
		// Zoom narrows or widens the wrap column, the terminal analog of
		// scaling the page.
		wrap := int(float64(width-4) / m.machine.Zoom())
		if wrap < 16 {
			wrap = 16
		}
		if wrap > width-4 {
			wrap = width - 4
		}
		text := m.machine.PageText()
		if text == "" {
			text = statusStyle.Render("(no extractable text on this page)")
		}
		b.WriteString(wrapText(text, wrap))
		b.WriteString("\n\n")
		b.WriteString(statusStyle.Render(fmt.Sprintf("page %d / %d   zoom %d%%   ←/→ page  +/- zoom",
			m.machine.Page(), m.machine.TotalPages(), int(m.machine.Zoom()*100))))
	}

	return previewStyle.
		Width(width - 2).
		Height(m.height - 2).
		MaxHeight(m.height).
		Render(b.String())
}

func (m *Model) renderChat() string {
	var parts []string
	parts = append(parts, m.chatView.View())

	if m.log.Sending() {
		parts = append(parts, m.spin.View()+" thinking...")
	} else if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	} else {
		parts = append(parts, "")
	}

	parts = append(parts, inputStyle.Render(m.input.View()))
	parts = append(parts, statusStyle.Render("tab focus · enter send/select · ctrl+n new · ctrl+r refresh · ctrl+c quit"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// wrapText is a simple word wrapper for message and page content.
func wrapText(s string, width int) string {
	if width < 1 {
		return s
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		for len(line) > width {
			cut := strings.LastIndex(line[:width], " ")
			if cut <= 0 {
				cut = width
			}
			b.WriteString(line[:cut] + "\n")
			line = strings.TrimLeft(line[cut:], " ")
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
