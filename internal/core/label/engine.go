package label

import (
	"sort"
	"sync/atomic"

	"github.com/vipertrack/vipertrack/internal/core/bucket"
	"github.com/vipertrack/vipertrack/internal/util"
)

// Engine resolves the active label set for closed buckets. Resolution itself
// is a pure function of (bucket, snapshot) - no memory across buckets, no
// implicit smoothing - so identical inputs always yield the identical label
// set. The engine only keeps bookkeeping for error reporting and counters.
type Engine struct {
	// reported tracks which (label, generation) pairs already logged an
	// evaluation failure, so a broken condition is reported once per load
	// attempt instead of once per bucket.
	reported   map[string]int64
	evalErrors atomic.Uint64
}

// NewEngine creates a label resolution engine.
func NewEngine() *Engine {
	return &Engine{reported: make(map[string]int64)}
}

// EvalErrors returns the number of isolated condition evaluation failures so
// far. Safe to read from other goroutines.
func (e *Engine) EvalErrors() uint64 {
	return e.evalErrors.Load()
}

// Resolve returns the sorted ids of all labels active for the bucket.
// Precedence per label: a manual override wins unconditionally; otherwise a
// disabled label is skipped, and an enabled label is active iff its condition
// tree evaluates true. Evaluation failures disable auto-activation for that
// label only and never abort the other labels.
func (e *Engine) Resolve(b *bucket.ActivityBucket, snap *Snapshot) []string {
	active := make([]string, 0, len(snap.Labels))

	for _, lbl := range snap.Labels {
		switch snap.Override(lbl.ID) {
		case OverrideForcedOn:
			active = append(active, lbl.ID)
			continue
		case OverrideForcedOff:
			continue
		}

		if !lbl.Active || lbl.Condition == nil {
			continue
		}

		ok, err := Evaluate(lbl.Condition, b)
		if err != nil {
			e.evalErrors.Add(1)
			if e.reported[lbl.ID] != snap.Generation {
				e.reported[lbl.ID] = snap.Generation
				util.LogWarnf("label %s (%s): condition evaluation failed, auto-activation disabled for generation %d: %v",
					lbl.ID, lbl.Name, snap.Generation, err)
			}
			continue
		}
		if ok {
			active = append(active, lbl.ID)
		}
	}

	sort.Strings(active)
	return active
}
