package checkpoint

import (
	"github.com/mtconnect-go/agent/cmn/debug"
	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/observation"
)

// insertCondition merges a CONDITION observation into its chain per
// spec.md §4.3 (grounded on original_source's buffer/checkpoint.hpp
// Checkpoint::addObservation condition branch):
//
//   - UNAVAILABLE replaces the whole chain with a single entry.
//   - NORMAL without a native code clears the chain to a single NORMAL.
//   - NORMAL with a native code removes the matching active entry only.
//   - FAULT/WARNING first drops any NORMAL/UNAVAILABLE entry; then, with
//     a native code matching an existing entry, it replaces that entry in
//     place; otherwise it is appended.
func (c *Checkpoint) insertCondition(obs *observation.Observation) {
	debug.Assertf(obs.DataItem.Category == model.Condition, "insertCondition called on non-condition data item %s", obs.DataItem.ID)
	id := obs.DataItem.ID
	chain := c.chains[id]

	switch obs.Level {
	case observation.Unavailable:
		c.chains[id] = []*observation.Observation{obs}
		return
	case observation.Normal:
		if obs.NativeCode == "" {
			c.chains[id] = []*observation.Observation{obs}
			return
		}
		c.chains[id] = removeByNativeCode(chain, obs.NativeCode)
		return
	default: // Fault, Warning
		active := chain[:0:0]
		for _, o := range chain {
			if o.Level != observation.Normal && o.Level != observation.Unavailable {
				active = append(active, o)
			}
		}
		chain = active
		if obs.NativeCode != "" {
			if idx := indexByNativeCode(chain, obs.NativeCode); idx >= 0 {
				chain[idx] = obs
				c.chains[id] = chain
				return
			}
		}
		c.chains[id] = append(chain, obs)
	}
}

func indexByNativeCode(chain []*observation.Observation, code string) int {
	for i, o := range chain {
		if o.NativeCode == code {
			return i
		}
	}
	return -1
}

func removeByNativeCode(chain []*observation.Observation, code string) []*observation.Observation {
	out := chain[:0:0]
	for _, o := range chain {
		if o.NativeCode != code {
			out = append(out, o)
		}
	}
	return out
}
