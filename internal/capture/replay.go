package capture

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/vipertrack/vipertrack/internal/core/event"
	"github.com/vipertrack/vipertrack/internal/util"
)

// replayEvent is the JSONL wire shape of a captured event trace. Key and
// button use the same names the rest of the system reports, so a trace can be
// assembled by hand or exported from another capture tool.
type replayEvent struct {
	Type      string    `json:"type"`
	Key       int       `json:"key,omitempty"`
	Button    string    `json:"button,omitempty"`
	Delta     int       `json:"delta,omitempty"`
	Process   string    `json:"process,omitempty"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplaySource reads a JSONL event trace and submits each event in file
// order. With realtime enabled it sleeps out the recorded gaps between
// events; otherwise it submits as fast as the pipeline accepts.
type ReplaySource struct {
	path     string
	realtime bool
}

// NewReplaySource creates a source replaying the trace at path.
func NewReplaySource(path string, realtime bool) *ReplaySource {
	return &ReplaySource{path: path, realtime: realtime}
}

func (s *ReplaySource) Run(ctx context.Context, submit func(event.RawEvent)) error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open replay trace: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var previous time.Time
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var re replayEvent
		if err := sonic.Unmarshal(data, &re); err != nil {
			util.LogWarnf("replay trace %s line %d: skipping unreadable event: %v", s.path, line, err)
			continue
		}

		raw, ok := re.toRaw()
		if !ok {
			util.LogWarnf("replay trace %s line %d: unknown event type %q", s.path, line, re.Type)
			continue
		}

		if s.realtime && !previous.IsZero() {
			if gap := raw.Timestamp.Sub(previous); gap > 0 {
				timer := time.NewTimer(gap)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}
		previous = raw.Timestamp

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		submit(raw)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read replay trace: %w", err)
	}
	return nil
}

func (re replayEvent) toRaw() (event.RawEvent, bool) {
	raw := event.RawEvent{Timestamp: re.Timestamp}
	switch re.Type {
	case "key_press":
		raw.Type = event.RawKeyPress
		raw.Key = event.KeyCode(re.Key)
	case "mouse_click":
		raw.Type = event.RawMouseClick
		raw.Button = parseButton(re.Button)
	case "mouse_scroll":
		raw.Type = event.RawMouseScroll
		raw.ScrollDelta = re.Delta
	case "window_focus":
		raw.Type = event.RawWindowFocus
		raw.Process = re.Process
		raw.Title = re.Title
	default:
		return event.RawEvent{}, false
	}
	return raw, true
}

func parseButton(s string) event.MouseButton {
	switch s {
	case "left":
		return event.ButtonLeft
	case "right":
		return event.ButtonRight
	case "middle":
		return event.ButtonMiddle
	default:
		return event.ButtonNone
	}
}
