package pipeline

import "github.com/mtconnect-go/agent/checkpoint"

// DuplicateFilter is T7: drops an observation whose value equals the
// latest checkpoint value for that data item, unless the data item
// declares allow-dups. Discrete items are never duplicate-filtered (the
// checkpoint itself never suppresses them either; see checkpoint.Insert).
// Data sets use the checkpoint's value-diff semantics instead of a
// plain equality check (spec.md §4.3/§4.5 T7).
type DuplicateFilter struct {
	Latest *checkpoint.Checkpoint
}

func NewDuplicateFilter(latest *checkpoint.Checkpoint) *DuplicateFilter {
	return &DuplicateFilter{Latest: latest}
}

func (f *DuplicateFilter) Name() string { return "DuplicateFilter" }

func (f *DuplicateFilter) Accepts(e Entity) bool {
	_, ok := e.(ObservationEntity)
	return ok
}

func (f *DuplicateFilter) Apply(e Entity) ([]Entity, error) {
	oe := e.(ObservationEntity)
	obs := oe.Obs
	di := obs.DataItem

	if di.IsDiscrete() || di.AllowDups {
		return []Entity{e}, nil
	}

	if di.IsDataSet() {
		_, changed := f.Latest.MergeDataSet(obs)
		if !changed {
			return nil, nil
		}
		return []Entity{e}, nil
	}

	prev := f.Latest.Get(di.ID)
	if prev == nil {
		return []Entity{e}, nil
	}
	if prev.Scalar == obs.Scalar && prev.Level == obs.Level && prev.NativeCode == obs.NativeCode {
		return nil, nil
	}
	return []Entity{e}, nil
}
