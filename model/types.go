// Package model implements the MTConnect device/component/data-item tree:
// construction, unit conversion derivation, topic/key derivation, and the
// multi-index lookups the rest of the agent core relies on. It is built by
// an external device-description parser (out of scope here, §1 of the
// originating spec) and handed to this package as plain Go values.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package model

import "fmt"

type Category string

const (
	Sample    Category = "SAMPLE"
	Event     Category = "EVENT"
	Condition Category = "CONDITION"
)

type Representation string

const (
	Value      Representation = "VALUE"
	TimeSeries Representation = "TIME_SERIES"
	Discrete   Representation = "DISCRETE"
	DataSet    Representation = "DATA_SET"
	Table      Representation = "TABLE"
)

// SpecialClass records the handful of data-item types that need bespoke
// pipeline treatment beyond their category/representation.
type SpecialClass int

const (
	NoSpecialClass SpecialClass = iota
	MessageClass
	AlarmClass
	ThreeSpaceClass
	AssetChangedClass
	AssetRemovedClass
)

// Filter holds the ingest-side suppression rules for a data item: an
// absolute-value window (MINIMUM_DELTA) and/or a minimum re-emission
// period (PERIOD). Either may be nil.
type Filter struct {
	MinimumDelta *float64
	PeriodNanos  *int64
}

// Conversion is the linear transform applied to a sample value on ingest:
// converted = (raw + Offset) * Factor. A nil *Conversion is the identity
// conversion; the zero value (Factor 0) maps every value to 0.
type Conversion struct {
	Factor float64
	Offset float64
}

func (c *Conversion) IsIdentity() bool {
	return c == nil || (c.Factor == 1 && c.Offset == 0)
}

func (c *Conversion) Convert(v float64) float64 {
	if c == nil {
		return v
	}
	return (v + c.Offset) * c.Factor
}

func (c *Conversion) ConvertVector(v []float64) []float64 {
	if c == nil {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = c.Convert(x)
	}
	return out
}

// Constraints fixes a data item to a single constant value, which
// IsConstant reports. The ingest pipeline does not consult it: adapter
// input for such a data item still produces observations.
type Constraints struct {
	Value *string
}

// DataItem is the smallest observable variable of a device.
type DataItem struct {
	ID             string
	Name           string
	Type           string
	SubType        string
	Category       Category
	Representation Representation
	Units          string
	NativeUnits    string
	NativeScale    float64 // 0 means "not set"
	Filters        []Filter
	ResetTrigger   string
	Source         string // preferred shdr name, may differ from ID/Name
	InitialValue   string
	Constraints    *Constraints
	Special        SpecialClass
	Discrete       bool // representation DISCRETE, or explicit discrete flag
	AllowDups      bool

	// derived at Build() time
	Topic          string
	TopicName      string
	Key            string
	ObservationName string
	Conversion     *Conversion

	// back-pointers, non-owning
	Component *Component `json:"-"`
	Device    *Device    `json:"-"`

	originalID string
}

func (di *DataItem) IsConstant() bool {
	return di.Constraints != nil && di.Constraints.Value != nil
}

func (di *DataItem) IsDataSet() bool {
	return di.Representation == DataSet || di.Representation == Table
}

func (di *DataItem) IsDiscrete() bool {
	return di.Representation == Discrete || di.Discrete
}

func (di *DataItem) MinimumDelta() (float64, bool) {
	for _, f := range di.Filters {
		if f.MinimumDelta != nil {
			return *f.MinimumDelta, true
		}
	}
	return 0, false
}

func (di *DataItem) PeriodNanos() (int64, bool) {
	for _, f := range di.Filters {
		if f.PeriodNanos != nil {
			return *f.PeriodNanos, true
		}
	}
	return 0, false
}

// Composition is a free-form sub-assembly tag on a Component (e.g. a motor
// or a specific axis drive) carried through without further structure.
type Composition struct {
	ID   string
	Type string
	Name string
}

// Component is a node of the device tree. The Device that owns the
// subtree holds the only strong references; children/parent links here
// are non-owning.
type Component struct {
	ID         string
	Name       string
	UUID       string
	Type       string // e.g. "Controller", "Linear", "Rotary", "Path"
	Attributes map[string]string

	Children     []*Component
	DataItems    []*DataItem
	Compositions []Composition

	Parent *Component // non-owning back-pointer, nil for the device root
	Device *Device    // non-owning back-pointer to the owning device
}

// Device is a rooted tree of Components, plus the agent-wide-unique
// identity fields. The synthetic Agent device (IsAgent==true) reports the
// agent's own availability and asset events.
type Device struct {
	Component
	UUID        string
	Description string
	IsAgent     bool
}

func (c *Component) eachDataItem(fn func(*DataItem)) {
	for _, di := range c.DataItems {
		fn(di)
	}
	for _, ch := range c.Children {
		ch.eachDataItem(fn)
	}
}

// EachDataItem enumerates every data item in the device, depth-first.
func (d *Device) EachDataItem(fn func(*DataItem)) { d.eachDataItem(fn) }

func (di *DataItem) String() string {
	return fmt.Sprintf("DataItem{id=%s name=%s type=%s category=%s}", di.ID, di.Name, di.Type, di.Category)
}
