package buffer

import (
	"github.com/mtconnect-go/agent/checkpoint"
	"github.com/mtconnect-go/agent/observation"
)

// Range walks the ring per spec.md §4.4 and returns the matching
// observations plus the sequence to resume from (nextSequence) and
// whether the walk reached the live edge of the buffer (endOfBuffer).
//
//   - count >= 0 walks forward from from (or firstSequence) up to count
//     non-orphan, filter-matching entries.
//   - count < 0 walks backward from from (or sequence-1), returning
//     |count| entries.
//   - to, if provided, inverts to "sample up to and including" semantics:
//     walk backward from to.
func (b *Buffer) Range(from *uint64, to *uint64, count int, filterSet map[string]bool) (list []*observation.Observation, next uint64, endOfBuffer bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	limit := count
	if limit < 0 {
		limit = -limit
	}
	if limit == 0 || uint64(limit) >= b.size {
		return nil, 0, false, &ErrOutOfRange{Reason: "count magnitude out of [1, bufferCapacity)"}
	}
	if from != nil && (*from < b.firstSequence || *from >= b.sequence) {
		return nil, 0, false, &ErrOutOfRange{Reason: "from outside [firstSequence, nextSequence)"}
	}

	var first uint64
	var inc int64

	switch {
	case count >= 0 && to != nil:
		first = *to
		inc = -1
	case count >= 0:
		first = b.firstSequence
		if from != nil && *from > b.firstSequence {
			first = *from
		}
		inc = 1
	default:
		first = b.sequence - 1
		if from != nil && *from < b.sequence {
			first = *from
		}
		inc = -1
	}

	list = make([]*observation.Observation, 0, limit)
	i := first
	added := 0
	for added < limit {
		if i < b.firstSequence || i >= b.sequence {
			break
		}
		if obs := b.atLocked(i); obs != nil && !obs.Orphan {
			if filterSet == nil || filterSet[obs.DataItem.ID] {
				list = append(list, obs)
				added++
			}
		}
		if inc < 0 {
			if i == b.firstSequence {
				break
			}
			i--
		} else {
			i++
		}
	}

	if inc > 0 {
		next = i
		endOfBuffer = i >= b.sequence
	} else {
		next = i
		endOfBuffer = i <= b.firstSequence
	}
	return list, next, endOfBuffer, nil
}

// CheckpointAt reconstructs buffer state as of seq (spec.md §4.4): find
// the nearest interior snapshot at or before seq (falling back to
// first), then replay the ring forward to seq. The result is a fresh
// clone, safe for the caller to hold without the buffer's lock.
func (b *Buffer) CheckpointAt(seq uint64, filterSet map[string]bool) *checkpoint.Checkpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	baseSeq := b.firstSequence
	base := b.first
	for _, snap := range b.checkpoints {
		if snap.seq <= seq && snap.seq >= baseSeq {
			baseSeq = snap.seq
			base = snap.cp
		}
	}

	out := base.Copy(filterSet)
	for s := baseSeq + 1; s <= seq; s++ {
		if obs := b.atLocked(s); obs != nil {
			out.Insert(obs)
		}
	}
	return out
}
