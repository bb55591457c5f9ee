package event

import "time"

// EventKind is the closed set of semantic categories the classifier maps raw
// capture events onto. Everything downstream (buckets, conditions, records)
// works in terms of these kinds, never raw key codes.
type EventKind int

const (
	KindCharKey EventKind = iota
	KindArrowKey
	KindSpecialKey
	KindMouseClick
	KindMouseScroll
	KindWindowFocus
)

var kindNames = map[EventKind]string{
	KindCharKey:     "char_key",
	KindArrowKey:    "arrow_key",
	KindSpecialKey:  "special_key",
	KindMouseClick:  "mouse_click",
	KindMouseScroll: "mouse_scroll",
	KindWindowFocus: "window_focus",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// CountedKinds lists the kinds that show up as bucket counters. Focus changes
// drive window samples instead of a counter.
func CountedKinds() []EventKind {
	return []EventKind{KindCharKey, KindArrowKey, KindSpecialKey, KindMouseClick, KindMouseScroll}
}

// MouseButton identifies which physical mouse button was pressed.
type MouseButton int

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "none"
	}
}

// RawEventType tags the union of events a capture adapter can deliver.
type RawEventType int

const (
	RawKeyPress RawEventType = iota
	RawMouseClick
	RawMouseScroll
	RawWindowFocus
)

// KeyCode identifies a pressed key as reported by the capture adapter.
// Printable keys are encoded as their rune value; non-printable keys use the
// dedicated codes below.
type KeyCode int

const (
	keySpecialBase KeyCode = 0x10000 + iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyTab
	KeyEscape
	KeyShift
	KeyCtrl
	KeyAlt
	KeyMeta
	KeyCapsLock
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// RawEvent is the transient wire shape pushed by a capture adapter. Only the
// fields matching Type carry meaning; the rest stay zero. Raw events are
// consumed immediately by the classifier and never persisted.
type RawEvent struct {
	Type        RawEventType
	Key         KeyCode
	Button      MouseButton
	ScrollDelta int
	Process     string
	Title       string
	Timestamp   time.Time
}

// WindowContext identifies the foreground window attached to a focus event.
type WindowContext struct {
	Process string
	Title   string
}

// ClassifiedEvent is the classifier's output: a semantic kind plus timestamp
// and, for focus events, the window that gained focus.
type ClassifiedEvent struct {
	Kind      EventKind
	Button    MouseButton
	Timestamp time.Time
	Window    WindowContext
}
