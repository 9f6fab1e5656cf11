// Package checkpoint implements the latest-observation snapshot the
// buffer maintains per data item, including condition chain tracking and
// data-set merge/reset semantics (spec.md §4.3). A Checkpoint is not
// internally synchronized: callers (the circular buffer) serialize
// access under their own lock, mirroring the teacher's
// buffer::Checkpoint, which likewise assumes external locking.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package checkpoint

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/observation"
)

// Checkpoint maps dataItemId -> latest Observation. For CONDITION data
// items the stored value is a chain: the ordered set of currently active
// FAULT/WARNING observations sharing that data item, or a single
// NORMAL/UNAVAILABLE observation when none is active.
type Checkpoint struct {
	observations map[string]*observation.Observation
	chains       map[string][]*observation.Observation
}

func New() *Checkpoint {
	return &Checkpoint{
		observations: make(map[string]*observation.Observation),
		chains:       make(map[string][]*observation.Observation),
	}
}

// Insert applies obs to the checkpoint per spec.md §4.3. Non-condition
// observations (including discrete ones, which never suppress
// duplicates) simply replace the prior mapping; every Insert call
// stands. Condition observations are merged into the chain via
// insertCondition. Data-set merge/no-op-discard is handled by
// MergeDataSet, which callers (the buffer) must invoke before Insert so
// the observation stored here already carries the resolved cumulative
// set.
func (c *Checkpoint) Insert(obs *observation.Observation) {
	if obs.DataItem.Category == model.Condition {
		c.insertCondition(obs)
		return
	}
	c.observations[obs.DataItem.ID] = obs
}

// Get returns the latest non-condition observation for a data item, or
// nil if none has been recorded.
func (c *Checkpoint) Get(dataItemID string) *observation.Observation {
	return c.observations[dataItemID]
}

// Chain returns the current condition chain for a data item: the active
// FAULT/WARNING entries, or a single NORMAL/UNAVAILABLE entry when none
// is active. It is empty after a coded NORMAL clears the last active
// entry, and nil if the data item was never observed.
func (c *Checkpoint) Chain(dataItemID string) []*observation.Observation {
	return c.chains[dataItemID]
}

// Copy clones entries whose data item id is in filterSet (or all
// entries when filterSet is nil), deep-copying each retained observation
// so the clone shares no mutable state with the source (spec.md §4.3).
func (c *Checkpoint) Copy(filterSet map[string]bool) *Checkpoint {
	out := New()
	for id, obs := range c.observations {
		if filterSet != nil && !filterSet[id] {
			continue
		}
		out.observations[id] = obs.Copy()
	}
	for id, chain := range c.chains {
		if filterSet != nil && !filterSet[id] {
			continue
		}
		cp := make([]*observation.Observation, len(chain))
		for i, o := range chain {
			cp[i] = o.Copy()
		}
		out.chains[id] = cp
	}
	return out
}

// Each enumerates every latest-value entry (conditions excluded; see
// EachCondition) — used to build query responses and to replay one
// checkpoint's state into another.
func (c *Checkpoint) Each(fn func(*observation.Observation)) {
	for _, obs := range c.observations {
		fn(obs)
	}
}

func (c *Checkpoint) EachCondition(fn func(dataItemID string, chain []*observation.Observation)) {
	for id, chain := range c.chains {
		fn(id, chain)
	}
}

// DumpJSON renders the latest-value map and active condition chains for
// diagnostic introspection (e.g. a debug HTTP endpoint), keyed by data
// item id. Not used on the ingest hot path.
func (c *Checkpoint) DumpJSON() (string, error) {
	type dump struct {
		Observations map[string]*observation.Observation   `json:"observations"`
		Conditions   map[string][]*observation.Observation `json:"conditions"`
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(&dump{
		Observations: c.observations,
		Conditions:   c.chains,
	})
}

// UpdateDataItems rebinds every retained observation's DataItem pointer
// after a model reload, using byOldID to look up the surviving
// replacement. An observation (or chain entry) whose old id is absent
// from byOldID is marked orphan but retained (spec.md §9).
func (c *Checkpoint) UpdateDataItems(byOldID map[string]*model.DataItem) {
	next := make(map[string]*observation.Observation, len(c.observations))
	for oldID, obs := range c.observations {
		if di, ok := byOldID[oldID]; ok {
			obs.DataItem = di
			next[di.ID] = obs
		} else {
			obs.Orphan = true
			next[oldID] = obs
		}
	}
	c.observations = next

	nextChains := make(map[string][]*observation.Observation, len(c.chains))
	for oldID, chain := range c.chains {
		key := oldID
		if di, ok := byOldID[oldID]; ok {
			key = di.ID
			for _, o := range chain {
				o.DataItem = di
			}
		} else {
			for _, o := range chain {
				o.Orphan = true
			}
		}
		nextChains[key] = chain
	}
	c.chains = nextChains
}
