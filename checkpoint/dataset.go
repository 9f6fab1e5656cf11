package checkpoint

import (
	"reflect"

	"github.com/mtconnect-go/agent/observation"
)

// MergeDataSet resolves an incoming DATA_SET/TABLE delta against the
// checkpoint's current cumulative state and returns the fully merged
// observation plus whether it differs from what is already stored
// (spec.md §4.3, §4.4). Callers (the circular buffer) must call this
// before Insert for every DATA_SET/TABLE observation: a false changed
// drops the observation instead of appending it.
//
// A RESET-tagged delta (obs.ResetTriggered != "") replaces the set
// wholesale; otherwise present keys overwrite and keys marked Removed
// erase from the prior cumulative set (grounded on
// original_source/src/mtconnect/entity/data_set.cpp's update grammar).
func (c *Checkpoint) MergeDataSet(obs *observation.Observation) (merged *observation.Observation, changed bool) {
	prev := c.Get(obs.DataItem.ID)

	base := observation.DataSet{}
	if obs.ResetTriggered == "" && prev != nil {
		for k, v := range prev.Set {
			base[k] = v
		}
	}
	for k, entry := range obs.Set {
		if entry.Removed {
			delete(base, k)
		} else {
			base[k] = entry
		}
	}

	var prevSet observation.DataSet
	if prev != nil {
		prevSet = prev.Set
	}
	changed = obs.ResetTriggered != "" || !dataSetEqual(base, prevSet)

	merged = obs.Copy()
	merged.Set = base
	return merged, changed
}

func dataSetEqual(a, b observation.DataSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !reflect.DeepEqual(ov.Value, v.Value) {
			return false
		}
	}
	return true
}
