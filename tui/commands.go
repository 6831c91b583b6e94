package tui

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"docchat/backend"
	"docchat/chat"
	"docchat/document"
	"docchat/preview"
)

type sourcesMsg []string

type sourcesChangedMsg struct{}

type historyMsg []backend.SessionSummary

type uploadDoneMsg struct {
	doc       document.Document
	sessionID string // id the upload was issued under
	res       backend.UploadResult
	err       error
}

type sendDoneMsg struct {
	sessionID string // id the send was issued under
	res       backend.SendResult
	err       error
}

type sessionMessagesMsg struct {
	sessionID string
	messages  []chat.Message
	err       error
}

type sessionDeletedMsg struct {
	sessionID string
	err       error
}

type previewLoadedMsg struct {
	gen   int
	pages []string
	err   error
}

type drainExpiredMsg struct {
	gen int
}

func listSourcesCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		files, err := ListSources(dir)
		if err != nil {
			return sourcesMsg(nil)
		}
		return sourcesMsg(files)
	}
}

// watchSourcesCmd blocks on the directory watcher until something relevant
// happens, then asks for a rescan. It is re-issued after every event.
func watchSourcesCmd(w *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if isPDF(ev.Name) {
					return sourcesChangedMsg{}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return sourcesChangedMsg{}
			}
		}
	}
}

// fetchHistoryCmd loads the remote session listing. History fails open: any
// error becomes an empty list.
func fetchHistoryCmd(client *backend.Client) tea.Cmd {
	return func() tea.Msg {
		sessions, err := client.FetchHistory(context.Background())
		if err != nil {
			return historyMsg(nil)
		}
		return historyMsg(sessions)
	}
}

func uploadCmd(client *backend.Client, doc document.Document, sessionID string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(doc.Path)
		if err != nil {
			return uploadDoneMsg{doc: doc, sessionID: sessionID, err: err}
		}
		res, err := client.UploadDocument(context.Background(), data, doc.Name, sessionID)
		return uploadDoneMsg{doc: doc, sessionID: sessionID, res: res, err: err}
	}
}

func sendCmd(client *backend.Client, text, sessionID, documentID string) tea.Cmd {
	return func() tea.Msg {
		res, err := client.SendMessage(context.Background(), text, sessionID, documentID)
		return sendDoneMsg{sessionID: sessionID, res: res, err: err}
	}
}

func fetchMessagesCmd(client *backend.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		messages, err := client.FetchSessionMessages(context.Background(), sessionID)
		return sessionMessagesMsg{sessionID: sessionID, messages: messages, err: err}
	}
}

func deleteSessionCmd(client *backend.Client, sessionID string) tea.Cmd {
	return func() tea.Msg {
		err := client.DeleteSession(context.Background(), sessionID)
		return sessionDeletedMsg{sessionID: sessionID, err: err}
	}
}

func loadPreviewCmd(path string, gen int) tea.Cmd {
	return func() tea.Msg {
		pages, err := preview.LoadPages(path)
		return previewLoadedMsg{gen: gen, pages: pages, err: err}
	}
}
