// Package preview drives the paginated document preview panel. The panel is
// a small state machine: Closed until a document is selected, Loading while
// the PDF is parsed, Ready while the user pages and zooms through it, and
// Draining for a short grace interval after the selection is cleared so the
// closing panel can animate out before its document is discarded.
package preview

import (
	"math"
	"time"

	"docchat/document"
)

// State of the preview panel.
type State int

const (
	StateClosed State = iota
	StateLoading
	StateReady
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	default:
		return "closed"
	}
}

const (
	ZoomMin  = 0.5
	ZoomMax  = 2.5
	ZoomStep = 0.2

	// DrainDelay is how long a closing panel stays mounted, matching the
	// width-collapse animation.
	DrainDelay = 320 * time.Millisecond
)

// Machine holds the per-document view state. Loads and drain expiries are
// tagged with a generation so that results belonging to a superseded open or
// a cancelled close are dropped instead of applied.
type Machine struct {
	state State
	doc   document.Document
	pages []string

	page int
	zoom float64

	loadGen  int
	drainGen int
	deadline time.Time

	now func() time.Time
}

// NewMachine creates a closed preview.
func NewMachine() *Machine {
	return &Machine{zoom: 1.0, now: time.Now}
}

// Open starts loading doc, from any state. Opening while Draining cancels
// the pending discard so the new document becomes visible without the panel
// ever passing through Closed. The returned generation must accompany the
// matching Loaded/LoadFailed call.
func (m *Machine) Open(doc document.Document) int {
	m.state = StateLoading
	m.doc = doc
	m.pages = nil
	m.page = 1
	m.zoom = 1.0
	m.loadGen++
	m.drainGen++ // invalidate any pending drain expiry
	return m.loadGen
}

// Loaded completes the open with the parsed pages. Results for a superseded
// open are ignored.
func (m *Machine) Loaded(gen int, pages []string) {
	if gen != m.loadGen || m.state != StateLoading {
		return
	}
	if len(pages) == 0 {
		m.close()
		return
	}
	m.state = StateReady
	m.pages = pages
	m.page = 1
	m.zoom = 1.0
}

// LoadFailed reports a parse failure: the panel returns to Closed with the
// loading flag cleared. The document is untouched elsewhere — only the
// preview gives up on it.
func (m *Machine) LoadFailed(gen int) {
	if gen != m.loadGen || m.state != StateLoading {
		return
	}
	m.close()
}

// Close begins draining: the panel stays mounted until the returned deadline
// so the collapse animation can finish. The returned generation identifies
// this particular drain; Expire with a stale generation is a no-op. ok is
// false when there is nothing to drain.
func (m *Machine) Close() (gen int, deadline time.Time, ok bool) {
	switch m.state {
	case StateReady:
		m.state = StateDraining
		m.drainGen++
		m.deadline = m.now().Add(DrainDelay)
		return m.drainGen, m.deadline, true
	case StateLoading:
		// Nothing visible yet, drop straight to Closed.
		m.close()
		return 0, time.Time{}, false
	default:
		return 0, time.Time{}, false
	}
}

// Expire finishes a drain whose deadline elapsed. A drain cancelled by a
// re-open in the meantime carries a stale generation and is ignored.
func (m *Machine) Expire(gen int) {
	if m.state != StateDraining || gen != m.drainGen {
		return
	}
	m.close()
}

// Prev moves one page back, clamped at the first page.
func (m *Machine) Prev() {
	if m.state == StateReady && m.page > 1 {
		m.page--
	}
}

// Next moves one page forward, clamped at the last page.
func (m *Machine) Next() {
	if m.state == StateReady && m.page < len(m.pages) {
		m.page++
	}
}

// ZoomIn raises the zoom by one step, clamped at ZoomMax.
func (m *Machine) ZoomIn() {
	if m.state == StateReady {
		m.zoom = clampZoom(m.zoom + ZoomStep)
	}
}

// ZoomOut lowers the zoom by one step, clamped at ZoomMin.
func (m *Machine) ZoomOut() {
	if m.state == StateReady {
		m.zoom = clampZoom(m.zoom - ZoomStep)
	}
}

// State returns the current panel state.
func (m *Machine) State() State { return m.state }

// Document returns the mounted document. It stays available through
// Draining so the closing panel keeps rendering it.
func (m *Machine) Document() (document.Document, bool) {
	if m.state == StateClosed {
		return document.Document{}, false
	}
	return m.doc, true
}

// Page returns the current 1-based page number.
func (m *Machine) Page() int { return m.page }

// TotalPages returns the page count; zero means not yet loaded.
func (m *Machine) TotalPages() int { return len(m.pages) }

// Zoom returns the current zoom factor.
func (m *Machine) Zoom() float64 { return m.zoom }

// PageText returns the extracted text of the current page.
func (m *Machine) PageText() string {
	if m.page < 1 || m.page > len(m.pages) {
		return ""
	}
	return m.pages[m.page-1]
}

func (m *Machine) close() {
	m.state = StateClosed
	m.doc = document.Document{}
	m.pages = nil
	m.page = 1
	m.zoom = 1.0
}

// clampZoom keeps zoom on the 0.2 grid inside [ZoomMin, ZoomMax], rounding
// to one decimal so repeated steps cannot accumulate float drift.
func clampZoom(z float64) float64 {
	z = math.Round(z*10) / 10
	if z < ZoomMin {
		return ZoomMin
	}
	if z > ZoomMax {
		return ZoomMax
	}
	return z
}
