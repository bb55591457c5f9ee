package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func focusLabel(id string, threshold int) Label {
	return Label{
		ID:     id,
		Name:   "Focus",
		Active: true,
		Condition: &Condition{
			Kind: LeafCounter, Counter: "char_key", Compare: CmpGE, Value: threshold,
		},
	}
}

func TestRegistryLoadInstallsNewGeneration(t *testing.T) {
	reg := NewRegistry(16)
	assert.Equal(t, int64(0), reg.Snapshot().Generation)

	generation, err := reg.Load([]Label{focusLabel("focus", 5)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), generation)

	snap := reg.Snapshot()
	assert.Equal(t, int64(1), snap.Generation)
	require.Len(t, snap.Labels, 1)
	assert.Equal(t, "focus", snap.Labels[0].ID)
}

func TestRegistryLoadRejectsWholeSetOnOneBadLabel(t *testing.T) {
	reg := NewRegistry(16)
	_, err := reg.Load([]Label{focusLabel("focus", 5)})
	require.NoError(t, err)

	bad := []Label{
		focusLabel("focus", 10),
		{ID: "broken", Name: "Broken", Active: true, Condition: &Condition{Kind: "weather"}},
	}
	_, err = reg.Load(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryLoad)

	// Previous generation stays fully intact, including the old threshold.
	snap := reg.Snapshot()
	assert.Equal(t, int64(1), snap.Generation)
	require.Len(t, snap.Labels, 1)
	assert.Equal(t, 5, snap.Labels[0].Condition.Value)
}

func TestRegistryLoadRejectsDuplicatesAndMissingIds(t *testing.T) {
	reg := NewRegistry(16)

	_, err := reg.Load([]Label{focusLabel("a", 1), focusLabel("a", 2)})
	assert.ErrorIs(t, err, ErrRegistryLoad)

	_, err = reg.Load([]Label{{Name: "NoId", Active: true}})
	assert.ErrorIs(t, err, ErrRegistryLoad)

	_, err = reg.Load([]Label{{ID: "noname", Active: true}})
	assert.ErrorIs(t, err, ErrRegistryLoad)
}

func TestRegistryManualOverride(t *testing.T) {
	reg := NewRegistry(16)
	_, err := reg.Load([]Label{focusLabel("focus", 5)})
	require.NoError(t, err)

	generation, err := reg.SetManualOverride("focus", OverrideForcedOn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), generation)
	assert.Equal(t, OverrideForcedOn, reg.Snapshot().Override("focus"))

	generation, err = reg.SetManualOverride("focus", OverrideUnset)
	require.NoError(t, err)
	assert.Equal(t, int64(3), generation)
	assert.Equal(t, OverrideUnset, reg.Snapshot().Override("focus"))

	_, err = reg.SetManualOverride("ghost", OverrideForcedOn)
	assert.Error(t, err)
}

func TestRegistryOverridesSurviveReload(t *testing.T) {
	reg := NewRegistry(16)
	_, err := reg.Load([]Label{focusLabel("focus", 5), focusLabel("other", 1)})
	require.NoError(t, err)

	_, err = reg.SetManualOverride("focus", OverrideForcedOff)
	require.NoError(t, err)

	// Reload keeps the override for ids that still exist, drops the rest.
	_, err = reg.Load([]Label{focusLabel("focus", 99)})
	require.NoError(t, err)

	snap := reg.Snapshot()
	assert.Equal(t, OverrideForcedOff, snap.Override("focus"))
	assert.Equal(t, OverrideUnset, snap.Override("other"))
}

func TestRegistryFilePinnedOverride(t *testing.T) {
	reg := NewRegistry(16)

	pinned := focusLabel("focus", 5)
	pinned.Override = "off"
	_, err := reg.Load([]Label{pinned})
	require.NoError(t, err)
	assert.Equal(t, OverrideForcedOff, reg.Snapshot().Override("focus"))

	// A pin in the file wins over a carried in-memory override.
	_, err = reg.SetManualOverride("focus", OverrideForcedOn)
	require.NoError(t, err)
	_, err = reg.Load([]Label{pinned})
	require.NoError(t, err)
	assert.Equal(t, OverrideForcedOff, reg.Snapshot().Override("focus"))

	bad := focusLabel("focus", 5)
	bad.Override = "sideways"
	_, err = reg.Load([]Label{bad})
	assert.ErrorIs(t, err, ErrRegistryLoad)
}

func TestSnapshotIsolationFromLaterLoads(t *testing.T) {
	reg := NewRegistry(16)
	_, err := reg.Load([]Label{focusLabel("focus", 5)})
	require.NoError(t, err)

	held := reg.Snapshot()

	_, err = reg.Load([]Label{focusLabel("focus", 50)})
	require.NoError(t, err)

	// The held snapshot still describes the generation it was taken from.
	assert.Equal(t, int64(1), held.Generation)
	assert.Equal(t, 5, held.Labels[0].Condition.Value)
	assert.Equal(t, int64(2), reg.Snapshot().Generation)
}

func TestParseOverrideState(t *testing.T) {
	tests := []struct {
		input    string
		expected OverrideState
		wantErr  bool
	}{
		{input: "on", expected: OverrideForcedOn},
		{input: "forced_on", expected: OverrideForcedOn},
		{input: "off", expected: OverrideForcedOff},
		{input: "clear", expected: OverrideUnset},
		{input: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOverrideState(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
