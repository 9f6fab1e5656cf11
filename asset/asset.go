// Package asset implements the bounded, type-indexed asset store
// (spec.md §4.6): tool/file/other assets identified by id, tombstoned
// on removal rather than deleted outright, with per-type LRU eviction
// when bounds are exceeded. Grounded on cluster/lom_cache_hk.go's
// atime-ordered eviction sweep, adapted from LOM cache entries to
// asset ids ordered by most-recent-touch instead of access time ticks.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package asset

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Asset is one stored tool/file/document, identified by id and tagged
// with the owning device's uuid and a type (e.g. "CuttingTool", "File").
type Asset struct {
	ID               string
	Type             string
	DeviceUUID       string
	Timestamp        time.Time
	Body             string
	Removed          bool
	RemovedTimestamp time.Time
}

// ChangeNotifier receives the synthetic ASSET_CHANGED/ASSET_REMOVED
// events a Store mutation produces, per spec.md §4.6/§4.5 T11. Wired by
// agentcore to re-inject the corresponding Observation into the
// pipeline against the owning device's asset_changed/asset_removed
// data item.
type ChangeNotifier interface {
	AssetChanged(deviceUUID, assetType, id string, ts time.Time)
	AssetRemoved(deviceUUID, assetType, id string, ts time.Time)
}

// Store is the bounded, per-type LRU asset store.
type Store struct {
	mu sync.Mutex

	maxPerType int
	byID       map[string]*Asset
	order      map[string][]string // assetType -> ids, most-recently-touched first

	Notifier ChangeNotifier
}

func New(maxPerType int) *Store {
	return &Store{
		maxPerType: maxPerType,
		byID:       make(map[string]*Asset),
		order:      make(map[string][]string),
	}
}

// Put inserts or replaces an asset, enforcing per-type LRU eviction when
// the type's bound is exceeded, and notifies ASSET_CHANGED.
func (s *Store) Put(id, assetType, deviceUUID string, ts time.Time, body string) *Asset {
	s.mu.Lock()
	a := &Asset{ID: id, Type: assetType, DeviceUUID: deviceUUID, Timestamp: ts, Body: body}

	if _, existed := s.byID[id]; existed {
		s.removeFromOrder(id)
	}
	s.byID[id] = a
	s.order[assetType] = append([]string{id}, s.order[assetType]...)

	var evicted []string
	for s.maxPerType > 0 && len(s.order[assetType]) > s.maxPerType {
		ids := s.order[assetType]
		victim := ids[len(ids)-1]
		s.order[assetType] = ids[:len(ids)-1]
		delete(s.byID, victim)
		evicted = append(evicted, victim)
	}
	s.mu.Unlock()

	if s.Notifier != nil {
		s.Notifier.AssetChanged(deviceUUID, assetType, id, ts)
	}
	return a
}

func (s *Store) removeFromOrder(id string) {
	for t, ids := range s.order {
		for i, existing := range ids {
			if existing == id {
				s.order[t] = append(ids[:i], ids[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) Get(id string) *Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

// Filter selects a subset for GetAll/Count.
type Filter struct {
	DeviceUUID     string
	Type           string
	IncludeRemoved bool
}

// GetAll returns matching assets, newest first within each asset type.
// Without a Type filter the types are visited in map order, so the order
// across types is not defined.
func (s *Store) GetAll(f Filter) []*Asset {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Asset
	types := []string{f.Type}
	if f.Type == "" {
		types = types[:0]
		for t := range s.order {
			types = append(types, t)
		}
	}
	for _, t := range types {
		for _, id := range s.order[t] {
			a := s.byID[id]
			if a == nil {
				continue
			}
			if !f.IncludeRemoved && a.Removed {
				continue
			}
			if f.DeviceUUID != "" && a.DeviceUUID != f.DeviceUUID {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

// Remove tombstones an asset; it remains in the store (and counted
// among includeRemoved queries) until evicted by Put pressure.
func (s *Store) Remove(id string, ts time.Time) bool {
	s.mu.Lock()
	a, ok := s.byID[id]
	if ok {
		a.Removed = true
		a.RemovedTimestamp = ts
	}
	s.mu.Unlock()

	if ok && s.Notifier != nil {
		s.Notifier.AssetRemoved(a.DeviceUUID, a.Type, id, ts)
	}
	return ok
}

// RemoveAll tombstones every asset matching deviceUUID/assetType
// (either may be empty to mean "any"), returning the affected ids.
func (s *Store) RemoveAll(deviceUUID, assetType string, ts time.Time) []string {
	s.mu.Lock()
	var matched []*Asset
	for _, a := range s.byID {
		if a.Removed {
			continue
		}
		if deviceUUID != "" && a.DeviceUUID != deviceUUID {
			continue
		}
		if assetType != "" && a.Type != assetType {
			continue
		}
		matched = append(matched, a)
	}
	for _, a := range matched {
		a.Removed = true
		a.RemovedTimestamp = ts
	}
	s.mu.Unlock()

	ids := make([]string, len(matched))
	for i, a := range matched {
		ids[i] = a.ID
		if s.Notifier != nil {
			s.Notifier.AssetRemoved(a.DeviceUUID, a.Type, a.ID, ts)
		}
	}
	return ids
}

// DumpJSON renders the current assets matching f for diagnostic
// introspection, newest first per type.
func (s *Store) DumpJSON(f Filter) (string, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(s.GetAll(f))
}

// Count returns the number of assets of assetType ("" means all types),
// excluding tombstones unless includeRemoved.
func (s *Store) Count(assetType string, includeRemoved bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for t, ids := range s.order {
		if assetType != "" && t != assetType {
			continue
		}
		for _, id := range ids {
			a := s.byID[id]
			if a == nil {
				continue
			}
			if !includeRemoved && a.Removed {
				continue
			}
			n++
		}
	}
	return n
}
