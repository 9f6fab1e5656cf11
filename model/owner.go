package model

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mtconnect-go/agent/cmn"
)

// Owner holds the live Model behind an atomically-swapped pointer, the
// same copy-on-write discipline the teacher uses for the cluster map
// (cluster.Sowner / cluster.Smap in cluster/map.go): readers call Get(),
// which holds the mutex only to read the pointer, and then use the
// snapshot without further locking; Reload() builds a new
// Model off to the side and swaps it in only once it validates cleanly.
type Owner struct {
	mu  sync.Mutex
	cur *Model
}

func NewOwner(initial *Model) *Owner {
	return &Owner{cur: initial}
}

func (o *Owner) Get() *Model {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cur
}

// ReloadResult carries everything the buffer/checkpoint layer needs to
// rebind existing observations after a model swap (spec.md §4.1, §9).
type ReloadResult struct {
	NewModel *Model
	// IDRemap maps every surviving data item's old id to its new id.
	// Old ids absent from this map no longer exist in the new model;
	// observations referencing them become orphans (spec.md §9, Open
	// Question).
	IDRemap map[string]string
	// UUIDChanged lists devices whose uuid changed across the reload.
	// Core.Reload only logs them; no ASSET_CHANGED/ASSET_REMOVED
	// observations are emitted for them.
	UUIDChanged []string
}

// Reload validates and installs a new Model, matching data items between
// the old and new trees by (device identity, Source-or-Name) and
// returning the rebind map. When cfg.PreserveUUID is set, a device whose
// name survives the reload keeps its old uuid even if the incoming
// device description declares a new one ("PreserveUUID locks the uuid
// of this device", per the original agent's device.hpp), so a uuid
// format change in devices.xml never breaks client continuity. Invalid
// new models fail atomically: no mutation of the live Model occurs
// (spec.md §4.1).
func (o *Owner) Reload(newDevices []*Device) (*ReloadResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	old := o.cur
	if old != nil && cmn.GCO.Get().PreserveUUID {
		lockDeviceUUIDs(old, newDevices)
	}

	newModel, err := Build(newDevices)
	if err != nil {
		return nil, errors.Wrap(err, "reload: invalid device model")
	}

	result := &ReloadResult{NewModel: newModel, IDRemap: make(map[string]string)}

	if old != nil && old.Digest() == newModel.Digest() {
		// Identical identity surface: every data item keeps its id, so the
		// remap is the identity map and no uuid actually changed.
		old.EachDataItem(func(di *DataItem) { result.IDRemap[di.ID] = di.ID })
		o.cur = newModel
		return result, nil
	}

	if old != nil {
		for _, oldDev := range old.Devices {
			newDev := newModel.LookupDevice(oldDev.UUID)
			if newDev == nil {
				newDev = newModel.LookupDevice(oldDev.Name)
			}
			if newDev == nil {
				continue
			}
			if oldDev.UUID != "" && newDev.UUID != "" && oldDev.UUID != newDev.UUID {
				result.UUIDChanged = append(result.UUIDChanged, newDev.UUID)
			}
			matchDataItems(oldDev, newDev, result.IDRemap)
		}
	}

	o.cur = newModel
	return result, nil
}

// lockDeviceUUIDs overwrites each newDevice's uuid with its old
// counterpart's, matched by name, before the new model is built — so
// the locked uuid is what ends up in the new Model's indices rather
// than something callers have to patch in afterward.
func lockDeviceUUIDs(old *Model, newDevices []*Device) {
	byName := make(map[string]*Device, len(old.Devices))
	for _, d := range old.Devices {
		byName[d.Name] = d
	}
	for _, newDev := range newDevices {
		if oldDev, ok := byName[newDev.Name]; ok && oldDev.UUID != "" {
			newDev.UUID = oldDev.UUID
		}
	}
}

// matchDataItems pairs old and new data items of the same device by
// Source, then Name, recording old-id -> new-id in remap for every match
// whose id actually changed (and as an identity entry when it did not,
// simplifying buffer-side lookups to a single map check).
func matchDataItems(oldDev, newDev *Device, remap map[string]string) {
	byKey := make(map[string]*DataItem)
	newDev.EachDataItem(func(di *DataItem) {
		if di.Source != "" {
			byKey[di.Source] = di
		}
		byKey[di.Name] = di
	})

	oldDev.EachDataItem(func(oldDI *DataItem) {
		var match *DataItem
		if oldDI.Source != "" {
			match = byKey[oldDI.Source]
		}
		if match == nil {
			match = byKey[oldDI.Name]
		}
		if match == nil {
			return
		}
		remap[oldDI.ID] = match.ID
	})
}
