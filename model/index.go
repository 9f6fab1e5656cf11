package model

import (
	"sort"
	"strings"

	"github.com/OneOfOne/xxhash"
)

// Model is an immutable, fully-indexed snapshot of the device tree. A new
// Model is built by Build() or Owner.Reload(); callers never mutate one in
// place (the one exception: a "* calibration" protocol command replaces a
// DataItem's Conversion on the live Model), matching the teacher's copy-on-write Smap pattern (cluster/map.go)
// so readers holding a Model pointer never observe a partial update.
type Model struct {
	Devices []*Device

	byUUID map[string]*Device
	byName map[string]*Device
	byID   map[string]*DataItem
}

func (m *Model) buildDeviceIndex() {
	m.Devices = m.Devices[:0]
	seen := make(map[*Device]bool)
	for _, d := range m.byUUID {
		if !seen[d] {
			m.Devices = append(m.Devices, d)
			seen[d] = true
		}
	}
	for _, d := range m.byName {
		if !seen[d] {
			m.Devices = append(m.Devices, d)
			seen[d] = true
		}
	}
}

// LookupDevice resolves a device by uuid or name, in that order, O(1) via
// the two hash indices (spec.md §4.1).
func (m *Model) LookupDevice(uuidOrName string) *Device {
	if d, ok := m.byUUID[uuidOrName]; ok {
		return d
	}
	if d, ok := m.byName[uuidOrName]; ok {
		return d
	}
	return nil
}

// LookupDataItem resolves a key against a device's data items trying, in
// order: Source, name, id (spec.md §4.1).
func (m *Model) LookupDataItem(dev *Device, key string) *DataItem {
	if dev == nil {
		return nil
	}
	var bySource, byName, byID *DataItem
	dev.EachDataItem(func(di *DataItem) {
		if di.Source != "" && di.Source == key {
			bySource = di
		}
		if di.Name == key {
			byName = di
		}
		if di.ID == key {
			byID = di
		}
	})
	switch {
	case bySource != nil:
		return bySource
	case byName != nil:
		return byName
	default:
		return byID
	}
}

// DataItemByID looks up a data item agent-wide by its unique id.
func (m *Model) DataItemByID(id string) *DataItem {
	return m.byID[id]
}

// EachDataItem enumerates every data item across every device, used by
// checkpoint/buffer rewiring after a model reload.
func (m *Model) EachDataItem(fn func(*DataItem)) {
	for _, d := range m.Devices {
		d.EachDataItem(fn)
	}
}

// Digest fingerprints the device/data-item identity surface (uuid, name,
// and every data item id in a stable order) with xxhash, giving
// Owner.Reload a cheap way to recognize a byte-for-byte-unchanged device
// description and skip the data-item matching walk entirely.
func (m *Model) Digest() uint64 {
	h := xxhash.New64()
	devs := append([]*Device(nil), m.Devices...)
	sort.Slice(devs, func(i, j int) bool {
		if devs[i].UUID != devs[j].UUID {
			return devs[i].UUID < devs[j].UUID
		}
		return devs[i].Name < devs[j].Name
	})
	for _, d := range devs {
		h.Write([]byte(d.UUID))
		h.Write([]byte{0})
		h.Write([]byte(d.Name))
		h.Write([]byte{0})
	}
	for _, d := range devs {
		d.EachDataItem(func(di *DataItem) {
			h.Write([]byte(di.ID))
			h.Write([]byte{0})
		})
	}
	return h.Sum64()
}

// AgentDevice returns the synthetic Agent device, if one is present.
func (m *Model) AgentDevice() *Device {
	for _, d := range m.Devices {
		if d.IsAgent {
			return d
		}
	}
	return nil
}

// DataItemsForPath is a minimal xpath-ish filter used by the sink
// contract (spec.md §4.7): it matches data items whose topic contains the
// given path as a substring. A real xpath grammar belongs to the
// out-of-scope document-printer layer (spec.md §1).
func (m *Model) DataItemsForPath(dev *Device, path string) []*DataItem {
	var out []*DataItem
	visit := func(di *DataItem) {
		if path == "" || strings.Contains(di.Topic, path) {
			out = append(out, di)
		}
	}
	if dev != nil {
		dev.EachDataItem(visit)
	} else {
		m.EachDataItem(visit)
	}
	return out
}
