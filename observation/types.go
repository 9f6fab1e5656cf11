// Package observation implements the typed, timestamped readings that
// flow from the pipeline into the circular buffer: construction and
// shape validation against a DataItem's category x representation
// contract (spec.md §4.2).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package observation

import (
	"time"

	"github.com/mtconnect-go/agent/model"
)

// ConditionLevel is the activation state of a CONDITION observation.
type ConditionLevel string

const (
	Normal      ConditionLevel = "NORMAL"
	Warning     ConditionLevel = "WARNING"
	Fault       ConditionLevel = "FAULT"
	Unavailable ConditionLevel = "UNAVAILABLE"
)

// Unavailable value sentinel, legal for every category (spec.md §3).
const UnavailableValue = "UNAVAILABLE"

// DataSetEntry is one key's value within a DATA_SET/TABLE observation.
// Removed marks a key erased by an empty-value update (spec.md §6 grammar).
type DataSetEntry struct {
	Value   interface{} // string, float64, or a nested DataSet for TABLE rows
	Removed bool
}

type DataSet map[string]DataSetEntry

// Observation is a single timestamped reading of a DataItem. The
// concrete shape of Value depends on di.Category x di.Representation; see
// New() for the contract enforced at construction.
type Observation struct {
	DataItem  *model.DataItem
	Timestamp time.Time
	Sequence  uint64

	// scalar/vector/time-series payload (SAMPLE, non-data-set EVENT.VALUE)
	Scalar    string // canonical string form, including "UNAVAILABLE"
	Numeric   float64
	IsNumeric bool
	Vector    []float64

	SampleRate  float64
	SampleCount int

	// data-set / table payload
	Set DataSet

	// ResetTriggered carries the symbolic reset tag from the input line
	// when the prior series was explicitly cleared (spec.md §3).
	ResetTriggered string

	// EVENT.MESSAGE / EVENT.ALARM extras
	NativeCode  string
	Severity    string
	State       string
	Description string

	// CONDITION extras
	Level          ConditionLevel
	Code           string
	NativeSeverity string
	Qualifier      string
	Message        string

	// Orphan marks an observation whose DataItem no longer exists in the
	// current model (severed by a reload); still retained, skipped on
	// output (spec.md §3, invariant 3).
	Orphan bool
}

func (o *Observation) IsUnavailable() bool {
	if o.DataItem != nil && o.DataItem.Category == model.Condition {
		return o.Level == Unavailable
	}
	return o.Scalar == UnavailableValue
}

// Copy deep-copies an observation for checkpoint insertion, avoiding
// alias hazards between the buffer's retained slot and the checkpoint's
// own storage (spec.md §4.2).
func (o *Observation) Copy() *Observation {
	cp := *o
	if o.Vector != nil {
		cp.Vector = append([]float64(nil), o.Vector...)
	}
	if o.Set != nil {
		cp.Set = make(DataSet, len(o.Set))
		for k, v := range o.Set {
			cp.Set[k] = v
		}
	}
	return &cp
}
