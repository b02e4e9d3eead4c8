package geommode

import "github.com/Faultbox/midgard-csg/pkg/math"

// Key identifies an input the interactive modifiers react to.
type Key int

// Keys.
const (
	KeyNone Key = iota
	KeySpace
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyRightMouse
)

// KeyEvent is one key or button press in a viewport.
type KeyEvent struct {
	Key      Key
	Released bool
	Ctrl     bool
	Shift    bool
	Alt      bool

	View View
	// Cursor is the world-space cursor position on the view plane.
	Cursor math.Vec3
}

// placesPoint reports whether ev is the "place a point here" gesture:
// Ctrl+right click or the space bar.
func (ev KeyEvent) placesPoint() bool {
	return ev.Key == KeySpace || (ev.Key == KeyRightMouse && ev.Ctrl && !ev.Shift && !ev.Alt)
}

// KeyAction is what a modifier did with an input event.
type KeyAction int

// Key actions.
const (
	KeyIgnored KeyAction = iota
	KeyHandled
	// KeyApply asks the caller to apply the modifier now.
	KeyApply
)
