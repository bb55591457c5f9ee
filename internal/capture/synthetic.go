package capture

import (
	"context"
	"math/rand"
	"time"

	"github.com/vipertrack/vipertrack/internal/core/event"
)

// SyntheticSource generates a plausible stream of typing, clicking, and
// window switches. It exists so the full pipeline can run on machines without
// a platform capture adapter, and for demos.
type SyntheticSource struct {
	interval time.Duration
	rng      *rand.Rand
}

var syntheticWindows = []event.WindowContext{
	{Process: "editor.exe", Title: "main.go - Editor"},
	{Process: "browser.exe", Title: "Docs - Browser"},
	{Process: "terminal.exe", Title: "~/work"},
}

// NewSyntheticSource creates a source emitting roughly one event per
// interval.
func NewSyntheticSource(interval time.Duration, seed int64) *SyntheticSource {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &SyntheticSource{
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (s *SyntheticSource) Run(ctx context.Context, submit func(event.RawEvent)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	window := syntheticWindows[0]
	submit(event.RawEvent{
		Type:      event.RawWindowFocus,
		Process:   window.Process,
		Title:     window.Title,
		Timestamp: time.Now(),
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			submit(s.next(now))
		}
	}
}

func (s *SyntheticSource) next(now time.Time) event.RawEvent {
	raw := event.RawEvent{Timestamp: now}
	switch roll := s.rng.Intn(100); {
	case roll < 70:
		raw.Type = event.RawKeyPress
		raw.Key = event.KeyCode('a' + rune(s.rng.Intn(26)))
	case roll < 80:
		raw.Type = event.RawKeyPress
		raw.Key = event.KeyUp + event.KeyCode(s.rng.Intn(4))
	case roll < 90:
		raw.Type = event.RawMouseClick
		raw.Button = event.ButtonLeft
		if s.rng.Intn(5) == 0 {
			raw.Button = event.ButtonRight
		}
	case roll < 96:
		raw.Type = event.RawMouseScroll
		raw.ScrollDelta = 1 - 2*s.rng.Intn(2)
	default:
		window := syntheticWindows[s.rng.Intn(len(syntheticWindows))]
		raw.Type = event.RawWindowFocus
		raw.Process = window.Process
		raw.Title = window.Title
	}
	return raw
}
