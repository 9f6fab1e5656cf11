package pipeline

import (
	"sync"

	"github.com/mtconnect-go/agent/model"
)

// RateFilter is T6: applies a data item's MINIMUM_DELTA (drop when
// |v-lastValue| < delta, unless the new value is UNAVAILABLE) and
// PERIOD (drop when t-lastT < period) constraints. An availability
// transition (UNAVAILABLE <-> available) always clears the filter
// state so the next real value is never suppressed. Grounded on
// original_source/src/source/rate_filter.hpp.
type RateFilter struct {
	mu    sync.Mutex
	state map[string]*rateState // dataItemId -> last observed state
}

type rateState struct {
	value       float64
	timestampNS int64
	unavailable bool
}

func NewRateFilter() *RateFilter {
	return &RateFilter{state: make(map[string]*rateState)}
}

func (f *RateFilter) Name() string { return "RateFilter" }

func (f *RateFilter) Accepts(e Entity) bool {
	oe, ok := e.(ObservationEntity)
	if !ok {
		return false
	}
	return oe.Obs.DataItem.Category != model.Condition
}

func (f *RateFilter) Apply(e Entity) ([]Entity, error) {
	oe := e.(ObservationEntity)
	obs := oe.Obs
	di := obs.DataItem

	period, hasPeriod := di.PeriodNanos()
	delta, hasDelta := di.MinimumDelta()
	if !hasPeriod && !hasDelta {
		return []Entity{e}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, ok := f.state[di.ID]
	unavailable := obs.IsUnavailable()

	if !ok || prev.unavailable != unavailable {
		f.state[di.ID] = &rateState{value: obs.Numeric, timestampNS: obs.Timestamp.UnixNano(), unavailable: unavailable}
		return []Entity{e}, nil
	}

	if hasPeriod && obs.Timestamp.UnixNano()-prev.timestampNS < period {
		return nil, nil
	}
	if hasDelta && !unavailable {
		diff := obs.Numeric - prev.value
		if diff < 0 {
			diff = -diff
		}
		if diff < delta {
			return nil, nil
		}
	}

	f.state[di.ID] = &rateState{value: obs.Numeric, timestampNS: obs.Timestamp.UnixNano(), unavailable: unavailable}
	return []Entity{e}, nil
}
