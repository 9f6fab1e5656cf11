package checkpoint

import (
	"testing"
	"time"

	"github.com/mtconnect-go/agent/devtools/tassert"
	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/observation"
)

func conditionObs(di *model.DataItem, level observation.ConditionLevel, code string) *observation.Observation {
	o, err := observation.New(di, observation.Props{Level: level, NativeCode: code}, time.Unix(0, 0))
	if err != nil {
		panic(err)
	}
	return o
}

// TestConditionChainMerge replays spec.md's condition-chain scenario:
// NORMAL("") -> FAULT(2218) -> FAULT(2218),FAULT(4200) -> FAULT(4200) -> NORMAL singleton.
func TestConditionChainMerge(t *testing.T) {
	di := &model.DataItem{ID: "lp", Category: model.Condition}
	cp := New()

	cp.Insert(conditionObs(di, observation.Normal, ""))
	chain := cp.Chain("lp")
	tassert.Fatalf(t, len(chain) == 1 && chain[0].Level == observation.Normal, "expected singleton NORMAL")

	cp.Insert(conditionObs(di, observation.Fault, "2218"))
	chain = cp.Chain("lp")
	tassert.Fatalf(t, len(chain) == 1 && chain[0].NativeCode == "2218", "expected singleton FAULT(2218), got %+v", chain)

	cp.Insert(conditionObs(di, observation.Fault, "4200"))
	chain = cp.Chain("lp")
	tassert.Fatalf(t, len(chain) == 2, "expected two active faults, got %d", len(chain))

	cp.Insert(conditionObs(di, observation.Normal, "2218"))
	chain = cp.Chain("lp")
	tassert.Fatalf(t, len(chain) == 1 && chain[0].NativeCode == "4200",
		"expected only FAULT(4200) to remain, got %+v", chain)

	cp.Insert(conditionObs(di, observation.Normal, ""))
	chain = cp.Chain("lp")
	tassert.Fatalf(t, len(chain) == 1 && chain[0].Level == observation.Normal, "expected chain collapsed to NORMAL")
}

func dataSetObs(di *model.DataItem, reset string, entries map[string]float64, removed ...string) *observation.Observation {
	set := observation.DataSet{}
	for k, v := range entries {
		set[k] = observation.DataSetEntry{Value: v}
	}
	for _, k := range removed {
		set[k] = observation.DataSetEntry{Removed: true}
	}
	o, err := observation.New(di, observation.Props{Set: set, ResetTriggered: reset}, time.Unix(0, 0))
	if err != nil {
		panic(err)
	}
	return o
}

// TestDataSetMergeAndReset replays spec.md's data-set scenario:
// {a:1,b:2,c:3} -> c:5 merges to {a:1,b:2,c:5} -> RESET|d:10 replaces to
// {d:10} -> c:6 merges to {c:6,d:10}.
func TestDataSetMergeAndReset(t *testing.T) {
	di := &model.DataItem{ID: "vars", Category: model.Event, Representation: model.DataSet}
	cp := New()

	o1 := dataSetObs(di, "", map[string]float64{"a": 1, "b": 2, "c": 3})
	merged, changed := cp.MergeDataSet(o1)
	tassert.Fatalf(t, changed, "expected first observation to register as a change")
	cp.Insert(merged)
	tassert.Errorf(t, len(cp.Get("vars").Set) == 3, "expected 3 keys, got %d", len(cp.Get("vars").Set))

	o2 := dataSetObs(di, "", map[string]float64{"c": 5})
	merged, changed = cp.MergeDataSet(o2)
	tassert.Fatalf(t, changed, "expected c:5 to register as a change")
	cp.Insert(merged)
	got := cp.Get("vars")
	tassert.Errorf(t, len(got.Set) == 3 && got.Set["c"].Value == 5.0 && got.Set["a"].Value == 1.0,
		"expected merged {a:1,b:2,c:5}, got %+v", got.Set)

	o2dup := dataSetObs(di, "", map[string]float64{"c": 5})
	_, changed = cp.MergeDataSet(o2dup)
	tassert.Errorf(t, !changed, "expected repeating c:5 to be a no-op")

	o3 := dataSetObs(di, "RESET", map[string]float64{"d": 10})
	merged, changed = cp.MergeDataSet(o3)
	tassert.Fatalf(t, changed, "expected RESET to register as a change")
	cp.Insert(merged)
	got = cp.Get("vars")
	tassert.Errorf(t, len(got.Set) == 1 && got.Set["d"].Value == 10.0,
		"expected RESET to replace wholesale with {d:10}, got %+v", got.Set)

	o4 := dataSetObs(di, "", map[string]float64{"c": 6})
	merged, changed = cp.MergeDataSet(o4)
	tassert.Fatalf(t, changed, "expected c:6 to register as a change")
	cp.Insert(merged)
	got = cp.Get("vars")
	tassert.Errorf(t, len(got.Set) == 2 && got.Set["c"].Value == 6.0 && got.Set["d"].Value == 10.0,
		"expected merged {c:6,d:10}, got %+v", got.Set)
}

func TestDataSetRemovedKeyErasesEntry(t *testing.T) {
	di := &model.DataItem{ID: "vars", Category: model.Event, Representation: model.DataSet}
	cp := New()
	merged, _ := cp.MergeDataSet(dataSetObs(di, "", map[string]float64{"a": 1, "b": 2}))
	cp.Insert(merged)

	merged, changed := cp.MergeDataSet(dataSetObs(di, "", nil, "a"))
	tassert.Fatalf(t, changed, "expected removing a present key to register as a change")
	cp.Insert(merged)
	got := cp.Get("vars")
	_, stillThere := got.Set["a"]
	tassert.Errorf(t, !stillThere, "expected key a to be removed")
	tassert.Errorf(t, got.Set["b"].Value == 2.0, "expected key b to survive untouched")
}

func TestUpdateDataItemsRemapsAndOrphans(t *testing.T) {
	oldDI := &model.DataItem{ID: "old-id", Category: model.Sample}
	cp := New()
	o, err := observation.New(oldDI, observation.Props{Value: "1.0", HasValue: true}, time.Unix(0, 0))
	tassert.CheckError(t, err)
	cp.Insert(o)

	oldDI2 := &model.DataItem{ID: "gone-id", Category: model.Sample}
	o2, err := observation.New(oldDI2, observation.Props{Value: "2.0", HasValue: true}, time.Unix(0, 0))
	tassert.CheckError(t, err)
	cp.Insert(o2)

	newDI := &model.DataItem{ID: "new-id", Category: model.Sample}
	cp.UpdateDataItems(map[string]*model.DataItem{"old-id": newDI})

	tassert.Errorf(t, cp.Get("new-id") != nil, "expected surviving observation to be keyed by new id")
	tassert.Errorf(t, cp.Get("gone-id") != nil && cp.Get("gone-id").Orphan, "expected orphaned observation to be marked but retained")
}
