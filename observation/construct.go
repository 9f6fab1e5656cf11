package observation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mtconnect-go/agent/model"
)

// InvalidObservationError reports a shape mismatch between the supplied
// properties and the DataItem's category x representation contract
// (spec.md §4.2, §7). It names the offending field the way the teacher's
// entity::Requirement validation names its failed requirement
// (original_source entity/requirement.hpp).
type InvalidObservationError struct {
	DataItemID string
	Field      string
	Reason     string
}

func (e *InvalidObservationError) Error() string {
	return fmt.Sprintf("invalid observation for data item %q: field %q: %s", e.DataItemID, e.Field, e.Reason)
}

func invalid(di *model.DataItem, field, reason string) error {
	return &InvalidObservationError{DataItemID: di.ID, Field: field, Reason: reason}
}

// Props is the property bag New() validates against a DataItem's
// category x representation contract. Pipeline stages (principally
// ShdrTokenMapper, T3) populate it from parsed SHDR tokens.
type Props struct {
	Value          string
	HasValue       bool
	Values         []float64
	SampleRate     float64
	SampleCount    int
	Set            DataSet
	ResetTriggered string

	NativeCode  string
	Severity    string
	State       string
	Description string

	Level          ConditionLevel
	Code           string
	NativeSeverity string
	Qualifier      string
	Message        string
}

// New validates props against di's category x representation and
// constructs an Observation, per spec.md §4.2. The UNAVAILABLE sentinel
// is legal for every category and short-circuits shape validation.
func New(di *model.DataItem, p Props, ts time.Time) (*Observation, error) {
	o := &Observation{DataItem: di, Timestamp: ts, ResetTriggered: p.ResetTriggered}

	if p.HasValue && p.Value == UnavailableValue {
		o.Scalar = UnavailableValue
		if di.Category == model.Condition {
			o.Level = Unavailable
		}
		return o, nil
	}

	switch di.Category {
	case model.Condition:
		return newCondition(di, p, o)
	case model.Event:
		return newEvent(di, p, o)
	case model.Sample:
		return newSample(di, p, o)
	default:
		return nil, invalid(di, "category", "unknown category "+string(di.Category))
	}
}

func newCondition(di *model.DataItem, p Props, o *Observation) (*Observation, error) {
	if p.Level == "" {
		return nil, invalid(di, "level", "required for CONDITION")
	}
	o.Level = p.Level
	o.Code = p.Code
	o.NativeCode = p.NativeCode
	o.NativeSeverity = p.NativeSeverity
	o.Qualifier = p.Qualifier
	o.Message = p.Message
	return o, nil
}

func newEvent(di *model.DataItem, p Props, o *Observation) (*Observation, error) {
	if di.IsDataSet() {
		return newDataSet(di, p, o)
	}
	switch di.Special {
	case model.MessageClass:
		if !p.HasValue {
			return nil, invalid(di, "value", "required for MESSAGE")
		}
		o.Scalar = p.Value
		o.NativeCode = p.NativeCode
	case model.AlarmClass:
		if !p.HasValue {
			return nil, invalid(di, "value", "required for ALARM")
		}
		o.Scalar = p.Value
		o.Code = p.Code
		o.NativeCode = p.NativeCode
		o.Severity = p.Severity
		o.State = p.State
		o.Description = p.Description
	default:
		if !p.HasValue {
			return nil, invalid(di, "value", "required for EVENT.VALUE")
		}
		o.Scalar = p.Value
		if f, err := strconv.ParseFloat(p.Value, 64); err == nil {
			o.Numeric, o.IsNumeric = f, true
		}
	}
	return o, nil
}

func newSample(di *model.DataItem, p Props, o *Observation) (*Observation, error) {
	if di.IsDataSet() {
		return newDataSet(di, p, o)
	}

	switch di.Representation {
	case model.TimeSeries:
		if len(p.Values) == 0 {
			return nil, invalid(di, "values", "required for SAMPLE.TIME_SERIES")
		}
		o.Vector = p.Values
		o.SampleRate = p.SampleRate
		o.SampleCount = p.SampleCount
		if o.SampleCount == 0 {
			o.SampleCount = len(p.Values)
		}
	default: // VALUE, DISCRETE
		if di.Special == model.ThreeSpaceClass {
			if len(p.Values) != 3 {
				return nil, invalid(di, "values", "3D sample requires exactly 3 values")
			}
			o.Vector = p.Values
			return o, nil
		}
		if !p.HasValue {
			return nil, invalid(di, "value", "required for SAMPLE.VALUE")
		}
		f, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			return nil, invalid(di, "value", "cannot coerce %q to a scalar double: "+err.Error())
		}
		o.Numeric, o.IsNumeric, o.Scalar = f, true, p.Value
	}
	return o, nil
}

func newDataSet(di *model.DataItem, p Props, o *Observation) (*Observation, error) {
	if p.Set == nil && p.ResetTriggered == "" {
		return nil, invalid(di, "set", "required for DATA_SET/TABLE representation; a bare scalar cannot be coerced")
	}
	o.Set = p.Set
	return o, nil
}
