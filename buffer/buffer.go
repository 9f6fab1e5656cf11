// Package buffer implements the circular observation buffer (spec.md
// §4.4): a fixed-capacity ring with a monotonic sequence counter, two
// permanent checkpoints (first/latest), and periodic interior snapshots
// that make historical reconstruction cheap. Grounded on
// original_source/src/buffer/circular_buffer.hpp, adapted from its
// boost::circular_buffer + std::recursive_mutex design to a plain Go
// slice ring guarded by a single sync.Mutex — every exported method
// takes the lock itself and none call each other re-entrantly, so no
// recursive lock is needed.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package buffer

import (
	"sync"

	"github.com/mtconnect-go/agent/checkpoint"
	"github.com/mtconnect-go/agent/cmn/debug"
	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/observation"
)

// ErrOutOfRange reports a from/count argument to Range outside the
// buffer's currently retained window (spec.md §4.4).
type ErrOutOfRange struct {
	Reason string
}

func (e *ErrOutOfRange) Error() string { return "OUT_OF_RANGE: " + e.Reason }

type snapshot struct {
	seq uint64
	cp  *checkpoint.Checkpoint
}

// Buffer is the circular observation buffer. Capacity is always a power
// of two, sized as 1<<bufferExponent (default 2^17, spec.md §3).
type Buffer struct {
	mu sync.Mutex

	size uint64
	ring []*observation.Observation

	sequence      uint64
	firstSequence uint64

	checkpointFreq uint64
	checkpoints    []snapshot // rolling ring of interior snapshots, bounded

	first  *checkpoint.Checkpoint
	latest *checkpoint.Checkpoint
}

// New constructs a Buffer with capacity 1<<bufferExponent and interior
// checkpoint snapshots every checkpointFreq sequences (0 disables
// rolling snapshots).
func New(bufferExponent uint, checkpointFreq uint64) *Buffer {
	size := uint64(1) << bufferExponent
	b := &Buffer{
		size:           size,
		ring:           make([]*observation.Observation, size),
		sequence:       1,
		firstSequence:  1,
		checkpointFreq: checkpointFreq,
		first:          checkpoint.New(),
		latest:         checkpoint.New(),
	}
	if checkpointFreq > 0 {
		b.checkpoints = make([]snapshot, 0, size/checkpointFreq+1)
	}
	return b
}

func (b *Buffer) Size() uint64 { return b.size }

func (b *Buffer) Sequence() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sequence
}

func (b *Buffer) FirstSequence() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.firstSequence
}

func (b *Buffer) Latest() *checkpoint.Checkpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

func (b *Buffer) First() *checkpoint.Checkpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.first
}

// Append assigns the next sequence number to obs and pushes it onto the
// ring, per spec.md §4.4. It rejects orphans and no-op data-set updates
// (both return appended=false). DATA_SET/TABLE observations are first
// resolved against the latest checkpoint via MergeDataSet, so the ring
// always holds the fully merged cumulative value, not the raw delta.
func (b *Buffer) Append(obs *observation.Observation) (seq uint64, appended bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if obs.Orphan {
		return 0, false
	}

	di := obs.DataItem
	if !di.IsDiscrete() && di.IsDataSet() && !obs.IsUnavailable() {
		merged, changed := b.latest.MergeDataSet(obs)
		if !changed {
			return 0, false
		}
		obs = merged
	}

	seq = b.sequence
	debug.Assertf(seq >= 1, "sequence must start at 1, got %d", seq)
	obs.Sequence = seq
	idx := seq % b.size

	b.ring[idx] = obs
	b.latest.Insert(obs)

	switch {
	case seq == 1:
		// Primes the first checkpoint with the very first event in the series.
		b.first.Insert(obs)
	case seq >= b.size:
		// The ring now holds exactly [seq-size+1, seq]; roll the new oldest
		// surviving observation into first and advance firstSequence to match.
		frontSeq := seq - b.size + 1
		if front := b.ring[frontSeq%b.size]; front != nil {
			b.first.Insert(front)
		}
		if frontSeq > 1 {
			b.firstSequence = frontSeq
		}
	}

	if b.checkpointFreq > 0 && seq%b.checkpointFreq == 0 {
		b.pushSnapshot(seq)
	}

	b.sequence++
	return seq, true
}

func (b *Buffer) pushSnapshot(seq uint64) {
	snap := snapshot{seq: seq, cp: b.latest.Copy(nil)}
	cap := b.size/b.checkpointFreq + 1
	if uint64(len(b.checkpoints)) >= cap {
		b.checkpoints = append(b.checkpoints[1:], snap)
	} else {
		b.checkpoints = append(b.checkpoints, snap)
	}
}

// At returns the observation at seq, or nil if seq falls outside the
// currently retained window. O(1) by seq-firstSequence index.
func (b *Buffer) At(seq uint64) *observation.Observation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.atLocked(seq)
}

func (b *Buffer) atLocked(seq uint64) *observation.Observation {
	if seq < b.firstSequence || seq >= b.sequence {
		return nil
	}
	o := b.ring[seq%b.size]
	if o == nil || o.Sequence != seq {
		return nil
	}
	debug.Assertf(o.Sequence == seq, "ring slot %d holds sequence %d, expected %d", seq%b.size, o.Sequence, seq)
	return o
}

// SetSequence forces the sequence counter, used only for testing/restart
// continuity (spec.md §4.4).
func (b *Buffer) SetSequence(newSeq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sequence = newSeq
	if newSeq > b.size {
		b.firstSequence = newSeq - b.size
	}
}

// UpdateDataItems rebinds every retained observation's DataItem pointer
// after a model reload (spec.md §4.1/§4.4), propagating to the ring, the
// permanent checkpoints, and every interior snapshot.
func (b *Buffer) UpdateDataItems(byOldID map[string]*model.DataItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, o := range b.ring {
		if o == nil {
			continue
		}
		if di, ok := byOldID[o.DataItem.ID]; ok {
			o.DataItem = di
		} else {
			o.Orphan = true
		}
	}
	b.first.UpdateDataItems(byOldID)
	b.latest.UpdateDataItems(byOldID)
	for i := range b.checkpoints {
		b.checkpoints[i].cp.UpdateDataItems(byOldID)
	}
}
