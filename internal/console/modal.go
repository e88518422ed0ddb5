package console

// ModalState is the visibility of the credential overlay.
type ModalState int

const (
	ModalHidden ModalState = iota
	ModalVisible
)

func (s ModalState) String() string {
	if s == ModalVisible {
		return "visible"
	}
	return "hidden"
}

// Rect is a screen area in cells. Width and height are exclusive bounds.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Contains reports whether the cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Modal tracks the credential overlay. The zero value is hidden.
type Modal struct {
	state      ModalState
	credential *Credential
	bounds     Rect
}

// Open shows c, replacing whatever was shown before.
func (m *Modal) Open(c Credential) {
	m.credential = &c
	m.state = ModalVisible
}

// Close hides the overlay. Closing a hidden modal is a no-op.
func (m *Modal) Close() {
	m.state = ModalHidden
	m.credential = nil
}

// SetBounds records where the content area was drawn.
func (m *Modal) SetBounds(r Rect) {
	m.bounds = r
}

// Bounds returns the content area.
func (m *Modal) Bounds() Rect {
	return m.bounds
}

// Click handles a pointer press at (x, y). A click outside the content
// area of a visible modal closes it and returns true; anything else is
// ignored.
func (m *Modal) Click(x, y int) bool {
	if m.state != ModalVisible || m.bounds.Contains(x, y) {
		return false
	}
	m.Close()
	return true
}

// State returns the current state.
func (m *Modal) State() ModalState {
	return m.state
}

// Visible reports whether the overlay is shown.
func (m *Modal) Visible() bool {
	return m.state == ModalVisible
}

// Credential returns the shown credential, or nil when hidden.
func (m *Modal) Credential() *Credential {
	return m.credential
}

// Source returns the image data URI of the shown credential.
func (m *Modal) Source() string {
	if m.credential == nil {
		return ""
	}
	return m.credential.Source
}
