package label

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrRegistryLoad marks a rejected label set. The registry keeps serving the
// last good generation when a load fails; nothing is ever partially applied.
var ErrRegistryLoad = errors.New("label registry load rejected")

// OverrideState is the tri-state manual override on a label. Unset is
// distinguishable from ForcedOff so "no override" and "explicitly off" never
// blur together.
type OverrideState int

const (
	OverrideUnset OverrideState = iota
	OverrideForcedOn
	OverrideForcedOff
)

func (s OverrideState) String() string {
	switch s {
	case OverrideForcedOn:
		return "forced_on"
	case OverrideForcedOff:
		return "forced_off"
	default:
		return "unset"
	}
}

// ParseOverrideState parses the states accepted on the command line.
func ParseOverrideState(s string) (OverrideState, error) {
	switch s {
	case "on", "forced_on":
		return OverrideForcedOn, nil
	case "off", "forced_off":
		return OverrideForcedOff, nil
	case "clear", "unset":
		return OverrideUnset, nil
	default:
		return OverrideUnset, fmt.Errorf("unknown override state %q (want on, off or clear)", s)
	}
}

// Label is a user-defined tag. Activation is rule-driven through the
// condition tree unless a manual override forces it. A label without a
// condition only ever activates manually. Override pins a manual override in
// the labels file itself ("on" or "off"); it is applied on every load, so the
// CLI can flip it and a running tracker picks it up through the file watcher.
type Label struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	Override  string     `json:"override,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	Condition *Condition `json:"condition,omitempty"`
}

// Snapshot is an immutable view of the registry: label definitions, the
// override overlay, and the generation they belong to. Consumers evaluate
// against one snapshot for a whole bucket, so a mid-bucket reload never
// produces a half-applied label set.
type Snapshot struct {
	Generation int64
	Labels     []Label
	overrides  map[string]OverrideState
}

// Override returns the manual override state for a label id.
func (s *Snapshot) Override(id string) OverrideState {
	return s.overrides[id]
}

// Find returns the label with the given id.
func (s *Snapshot) Find(id string) (Label, bool) {
	for _, lbl := range s.Labels {
		if lbl.ID == id {
			return lbl, true
		}
	}
	return Label{}, false
}

// Registry owns the process-wide label set. Reads are lock-free atomic
// snapshot loads; Load and SetManualOverride swap in a complete new snapshot
// under a writer lock.
type Registry struct {
	mu       sync.Mutex
	snap     atomic.Pointer[Snapshot]
	maxDepth int
}

// NewRegistry creates an empty registry at generation zero.
func NewRegistry(maxDepth int) *Registry {
	r := &Registry{maxDepth: maxDepth}
	r.snap.Store(&Snapshot{overrides: map[string]OverrideState{}})
	return r
}

// Snapshot returns the current consistent view.
func (r *Registry) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Load validates and atomically installs a full label set, returning the new
// generation. Any invalid label rejects the entire load with ErrRegistryLoad
// and the previous generation stays active. Manual overrides survive a reload
// for labels whose ids still exist.
func (r *Registry) Load(labels []Label) (int64, error) {
	seen := make(map[string]bool, len(labels))
	for i := range labels {
		lbl := &labels[i]
		if lbl.ID == "" {
			return 0, fmt.Errorf("%w: label %q has no id", ErrRegistryLoad, lbl.Name)
		}
		if seen[lbl.ID] {
			return 0, fmt.Errorf("%w: duplicate label id %q", ErrRegistryLoad, lbl.ID)
		}
		seen[lbl.ID] = true
		if lbl.Name == "" {
			return 0, fmt.Errorf("%w: label %q has no name", ErrRegistryLoad, lbl.ID)
		}
		if lbl.Override != "" {
			if _, err := ParseOverrideState(lbl.Override); err != nil {
				return 0, fmt.Errorf("%w: label %q: %v", ErrRegistryLoad, lbl.ID, err)
			}
		}
		if lbl.Condition != nil {
			if err := lbl.Condition.Validate(r.maxDepth); err != nil {
				return 0, fmt.Errorf("%w: label %q: %v", ErrRegistryLoad, lbl.ID, err)
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.snap.Load()
	overrides := make(map[string]OverrideState, len(previous.overrides))
	for id, state := range previous.overrides {
		if seen[id] {
			overrides[id] = state
		}
	}
	// File-pinned overrides win over carried in-memory ones.
	for i := range labels {
		if labels[i].Override == "" {
			continue
		}
		state, _ := ParseOverrideState(labels[i].Override)
		if state == OverrideUnset {
			delete(overrides, labels[i].ID)
		} else {
			overrides[labels[i].ID] = state
		}
	}

	next := &Snapshot{
		Generation: previous.Generation + 1,
		Labels:     append([]Label(nil), labels...),
		overrides:  overrides,
	}
	r.snap.Store(next)
	return next.Generation, nil
}

// SetManualOverride changes the override overlay for one label, producing a
// new generation with unchanged definitions.
func (r *Registry) SetManualOverride(id string, state OverrideState) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.snap.Load()
	if _, ok := previous.Find(id); !ok {
		return 0, fmt.Errorf("unknown label id %q", id)
	}

	overrides := make(map[string]OverrideState, len(previous.overrides)+1)
	for k, v := range previous.overrides {
		overrides[k] = v
	}
	if state == OverrideUnset {
		delete(overrides, id)
	} else {
		overrides[id] = state
	}

	next := &Snapshot{
		Generation: previous.Generation + 1,
		Labels:     previous.Labels,
		overrides:  overrides,
	}
	r.snap.Store(next)
	return next.Generation, nil
}
