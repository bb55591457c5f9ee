package label

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vipertrack/vipertrack/internal/core/event"
)

func TestResolveConditionDriven(t *testing.T) {
	reg := NewRegistry(16)
	_, err := reg.Load([]Label{focusLabel("focus", 5)})
	require.NoError(t, err)

	engine := NewEngine()

	below := testBucket("2025-03-10T10:00:00Z", map[event.EventKind]int{event.KindCharKey: 3})
	assert.Empty(t, engine.Resolve(below, reg.Snapshot()))

	above := testBucket("2025-03-10T10:01:00Z", map[event.EventKind]int{event.KindCharKey: 8})
	assert.Equal(t, []string{"focus"}, engine.Resolve(above, reg.Snapshot()))
}

func TestResolveManualOverrideWins(t *testing.T) {
	reg := NewRegistry(16)
	_, err := reg.Load([]Label{focusLabel("focus", 5)})
	require.NoError(t, err)

	engine := NewEngine()
	below := testBucket("2025-03-10T10:00:00Z", map[event.EventKind]int{event.KindCharKey: 3})
	above := testBucket("2025-03-10T10:01:00Z", map[event.EventKind]int{event.KindCharKey: 8})

	// ForcedOn activates even though the condition is false.
	_, err = reg.SetManualOverride("focus", OverrideForcedOn)
	require.NoError(t, err)
	assert.Equal(t, []string{"focus"}, engine.Resolve(below, reg.Snapshot()))

	// ForcedOff deactivates even though the condition is true.
	_, err = reg.SetManualOverride("focus", OverrideForcedOff)
	require.NoError(t, err)
	assert.Empty(t, engine.Resolve(above, reg.Snapshot()))

	// Clearing the override hands control back to the condition.
	_, err = reg.SetManualOverride("focus", OverrideUnset)
	require.NoError(t, err)
	assert.Equal(t, []string{"focus"}, engine.Resolve(above, reg.Snapshot()))
}

func TestResolveSkipsDisabledLabels(t *testing.T) {
	disabled := focusLabel("focus", 1)
	disabled.Active = false

	reg := NewRegistry(16)
	_, err := reg.Load([]Label{disabled})
	require.NoError(t, err)

	engine := NewEngine()
	b := testBucket("2025-03-10T10:00:00Z", map[event.EventKind]int{event.KindCharKey: 100})
	assert.Empty(t, engine.Resolve(b, reg.Snapshot()))

	// A manual override still wins over the disabled flag.
	_, err = reg.SetManualOverride("focus", OverrideForcedOn)
	require.NoError(t, err)
	assert.Equal(t, []string{"focus"}, engine.Resolve(b, reg.Snapshot()))
}

func TestResolveManualOnlyLabel(t *testing.T) {
	manual := Label{ID: "meeting", Name: "Meeting", Active: true}

	reg := NewRegistry(16)
	_, err := reg.Load([]Label{manual})
	require.NoError(t, err)

	engine := NewEngine()
	b := testBucket("2025-03-10T10:00:00Z", map[event.EventKind]int{event.KindCharKey: 100})

	// Without a condition the label never auto-activates.
	assert.Empty(t, engine.Resolve(b, reg.Snapshot()))

	_, err = reg.SetManualOverride("meeting", OverrideForcedOn)
	require.NoError(t, err)
	assert.Equal(t, []string{"meeting"}, engine.Resolve(b, reg.Snapshot()))
}

func TestResolveMultipleLabelsSimultaneously(t *testing.T) {
	reg := NewRegistry(16)
	_, err := reg.Load([]Label{
		focusLabel("typing", 5),
		{ID: "editing", Name: "Editing", Active: true, Condition: &Condition{
			Kind: LeafProcessName, Pattern: "editor",
		}},
	})
	require.NoError(t, err)

	engine := NewEngine()
	b := testBucket("2025-03-10T10:00:00Z",
		map[event.EventKind]int{event.KindCharKey: 10},
		editorSample(time.Minute))

	assert.Equal(t, []string{"editing", "typing"}, engine.Resolve(b, reg.Snapshot()))
}

func TestResolveHasNoMemoryAcrossBuckets(t *testing.T) {
	reg := NewRegistry(16)
	_, err := reg.Load([]Label{focusLabel("focus", 5)})
	require.NoError(t, err)

	engine := NewEngine()
	snap := reg.Snapshot()

	active := testBucket("2025-03-10T10:00:00Z", map[event.EventKind]int{event.KindCharKey: 8})
	idle := testBucket("2025-03-10T10:01:00Z", map[event.EventKind]int{event.KindCharKey: 0})

	// An active bucket followed by an idle one: no carry-over, and the same
	// inputs resolve identically no matter the order or repetition.
	assert.Equal(t, []string{"focus"}, engine.Resolve(active, snap))
	assert.Empty(t, engine.Resolve(idle, snap))
	assert.Equal(t, []string{"focus"}, engine.Resolve(active, snap))
	assert.Empty(t, engine.Resolve(idle, snap))
}

func TestResolveIsolatesEvaluationFailures(t *testing.T) {
	// Build a label whose tree passes no validation (loaded directly into a
	// hand-rolled snapshot) and fails at evaluation time.
	broken := Label{ID: "broken", Name: "Broken", Active: true, Condition: &Condition{
		Kind: LeafCounter, Counter: "char_key", Compare: "<>", Value: 1,
	}}
	healthy := focusLabel("focus", 5)

	snap := &Snapshot{
		Generation: 7,
		Labels:     []Label{broken, healthy},
		overrides:  map[string]OverrideState{},
	}

	engine := NewEngine()
	b := testBucket("2025-03-10T10:00:00Z", map[event.EventKind]int{event.KindCharKey: 8})

	// The broken label is skipped, the healthy one still resolves.
	assert.Equal(t, []string{"focus"}, engine.Resolve(b, snap))
	assert.Equal(t, uint64(1), engine.EvalErrors())

	// Errors keep counting per bucket even though reporting is once per
	// generation.
	engine.Resolve(b, snap)
	assert.Equal(t, uint64(2), engine.EvalErrors())
}
