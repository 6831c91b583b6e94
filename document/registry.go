// Package document holds the client's in-memory set of uploaded documents
// and the single "selected for preview" pointer. The registry owns each
// document's local handle — a scratch copy of the source file that stands in
// for the original while it is previewed — and releases those handles when
// documents leave the registry.
package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document is one locally known uploaded file. ID is client-generated and
// stable for the lifetime of the process; Path points at the registry's
// scratch copy.
type Document struct {
	ID         string
	Name       string
	Path       string
	UploadedAt time.Time
}

// Registry stores documents and the current selection. Exactly zero or one
// document is selected at a time.
type Registry struct {
	docs       []Document
	selectedID string
	scratchDir string

	now func() time.Time
}

// NewRegistry creates a registry with a fresh scratch directory for local
// handles.
func NewRegistry() (*Registry, error) {
	dir, err := os.MkdirTemp("", "docchat-docs-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Registry{scratchDir: dir, now: time.Now}, nil
}

// Add registers the file at sourcePath: it synthesizes a Document with a
// fresh id, copies the file into the scratch directory and selects the new
// document. The backend upload is issued by the caller, concurrently — a
// failed upload leaves the document registered and previewable locally.
func (r *Registry) Add(sourcePath string) (Document, error) {
	doc := Document{
		ID:         uuid.NewString(),
		Name:       filepath.Base(sourcePath),
		UploadedAt: r.now(),
	}
	doc.Path = filepath.Join(r.scratchDir, doc.ID+filepath.Ext(sourcePath))

	if err := copyFile(sourcePath, doc.Path); err != nil {
		return Document{}, fmt.Errorf("failed to stage %s: %w", doc.Name, err)
	}

	r.docs = append(r.docs, doc)
	r.selectedID = doc.ID
	return doc, nil
}

// Select toggles the selection: selecting the already-selected document
// deselects it (closing the preview), selecting a different one replaces
// the selection outright. Unknown ids are ignored.
func (r *Registry) Select(id string) {
	if r.selectedID == id {
		r.selectedID = ""
		return
	}
	if _, ok := r.byID(id); ok {
		r.selectedID = id
	}
}

// Deselect clears the selection without removing anything.
func (r *Registry) Deselect() {
	r.selectedID = ""
}

// Selected returns the currently selected document, if any.
func (r *Registry) Selected() (Document, bool) {
	if r.selectedID == "" {
		return Document{}, false
	}
	return r.byID(r.selectedID)
}

// Documents returns a copy of the registered documents in insertion order.
func (r *Registry) Documents() []Document {
	return append([]Document(nil), r.docs...)
}

// Remove drops one document and releases its handle. Selection is cleared
// when it pointed at the removed document.
func (r *Registry) Remove(id string) error {
	for i, doc := range r.docs {
		if doc.ID != id {
			continue
		}
		r.docs = append(r.docs[:i], r.docs[i+1:]...)
		if r.selectedID == id {
			r.selectedID = ""
		}
		if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to release %s: %w", doc.Name, err)
		}
		return nil
	}
	return nil
}

// Clear empties the registry and selection, releasing every handle. Used
// when the user starts an unrelated conversation.
func (r *Registry) Clear() error {
	var firstErr error
	for _, doc := range r.docs {
		if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("failed to release %s: %w", doc.Name, err)
		}
	}
	r.docs = nil
	r.selectedID = ""
	return firstErr
}

// Close releases everything including the scratch directory itself.
func (r *Registry) Close() error {
	if err := r.Clear(); err != nil {
		return err
	}
	return os.RemoveAll(r.scratchDir)
}

func (r *Registry) byID(id string) (Document, bool) {
	for _, doc := range r.docs {
		if doc.ID == id {
			return doc, true
		}
	}
	return Document{}, false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
