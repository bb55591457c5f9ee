package event

// Key category tables. Arrow keys count separately so conditions can tell
// navigation from typing; space/enter/backspace/delete/tab produce or remove
// text, so they count as char keys even without a printable rune.
var arrowKeys = map[KeyCode]bool{
	KeyUp:    true,
	KeyDown:  true,
	KeyLeft:  true,
	KeyRight: true,
}

var charLikeKeys = map[KeyCode]bool{
	KeySpace:     true,
	KeyEnter:     true,
	KeyBackspace: true,
	KeyDelete:    true,
	KeyTab:       true,
}

// Classify maps a raw capture event onto its semantic kind. It is pure, total
// and deterministic: unknown key codes fall back to SpecialKey instead of
// failing, so a capture adapter can never break the pipeline by delivering
// something unexpected. Safe to call from the capture thread.
func Classify(raw RawEvent) ClassifiedEvent {
	ev := ClassifiedEvent{Timestamp: raw.Timestamp}

	switch raw.Type {
	case RawKeyPress:
		ev.Kind = classifyKey(raw.Key)
	case RawMouseClick:
		ev.Kind = KindMouseClick
		ev.Button = raw.Button
	case RawMouseScroll:
		ev.Kind = KindMouseScroll
	case RawWindowFocus:
		ev.Kind = KindWindowFocus
		ev.Window = WindowContext{Process: raw.Process, Title: raw.Title}
	default:
		// Unknown raw types are treated like an uncategorized key press.
		ev.Kind = KindSpecialKey
	}

	return ev
}

func classifyKey(key KeyCode) EventKind {
	switch {
	case arrowKeys[key]:
		return KindArrowKey
	case charLikeKeys[key]:
		return KindCharKey
	case key >= 0x20 && key < keySpecialBase:
		// Printable rune range: letters, digits, punctuation.
		return KindCharKey
	default:
		return KindSpecialKey
	}
}
