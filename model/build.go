package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Build links a freshly parsed Device tree into a ready-to-serve Model:
// it sets back-pointers, derives topics/keys/conversions, validates
// category consistency, and constructs the lookup indices. The incoming
// device-description parsing itself is out of scope (spec.md §1); this
// is the entry point the parser hands its result to.
func Build(devices []*Device) (*Model, error) {
	m := &Model{
		byUUID: make(map[string]*Device, len(devices)),
		byName: make(map[string]*Device, len(devices)),
		byID:   make(map[string]*DataItem),
	}

	for _, d := range devices {
		d.Device = d
		linkComponent(&d.Component, nil, d)

		if d.UUID != "" {
			if _, dup := m.byUUID[d.UUID]; dup {
				return nil, errors.Errorf("duplicate device uuid %q", d.UUID)
			}
			m.byUUID[d.UUID] = d
		}
		if d.Name != "" {
			if _, dup := m.byName[d.Name]; dup {
				return nil, errors.Errorf("duplicate device name %q", d.Name)
			}
			m.byName[d.Name] = d
		}

		var buildErr error
		d.EachDataItem(func(di *DataItem) {
			if buildErr != nil {
				return
			}
			if err := finalizeDataItem(di, d); err != nil {
				buildErr = errors.Wrapf(err, "data item %q", di.ID)
				return
			}
			if _, dup := m.byID[di.ID]; dup {
				buildErr = errors.Errorf("duplicate data item id %q", di.ID)
				return
			}
			m.byID[di.ID] = di
		})
		if buildErr != nil {
			return nil, buildErr
		}
	}

	m.buildDeviceIndex()
	return m, nil
}

func linkComponent(c *Component, parent *Component, dev *Device) {
	c.Parent = parent
	c.Device = dev
	for _, di := range c.DataItems {
		di.Component = c
		di.Device = dev
	}
	for _, ch := range c.Children {
		linkComponent(ch, c, dev)
	}
}

// finalizeDataItem validates category consistency and derives the
// topic/key/conversion fields described in spec.md §4.1.
func finalizeDataItem(di *DataItem, dev *Device) error {
	if err := validateCategory(di); err != nil {
		return err
	}

	if di.NativeUnits != "" || di.NativeScale != 0 {
		di.Conversion = deriveConversion(di.Units, di.NativeUnits, di.NativeScale)
	}
	if isThreeSpace(di.NativeUnits) || isThreeSpace(di.Units) {
		di.Special = ThreeSpaceClass
	}

	di.ObservationName = observationName(di.Type)
	di.Key = dataItemKey(di)
	di.TopicName = di.ObservationName
	di.Topic = topicPath(dev, di)

	return nil
}

func validateCategory(di *DataItem) error {
	switch strings.ToUpper(di.Type) {
	case "ALARM":
		if di.Category != Event {
			return errors.Errorf("ALARM must be category EVENT, got %s", di.Category)
		}
		di.Special = AlarmClass
	case "MESSAGE":
		if di.Category != Event {
			return errors.Errorf("MESSAGE must be category EVENT, got %s", di.Category)
		}
		di.Special = MessageClass
	case "ASSET_CHANGED":
		if di.Category != Event {
			return errors.Errorf("ASSET_CHANGED must be category EVENT, got %s", di.Category)
		}
		di.Special = AssetChangedClass
	case "ASSET_REMOVED":
		if di.Category != Event {
			return errors.Errorf("ASSET_REMOVED must be category EVENT, got %s", di.Category)
		}
		di.Special = AssetRemovedClass
	}
	if di.Representation == DataSet || di.Representation == Table {
		// representation stands as declared; nothing further to enforce.
		return nil
	}
	return nil
}

// observationName pascalizes a data item type into its wire observation
// name, e.g. "PATH_FEEDRATE" -> "PathFeedrate". The printer that emits
// XML/JSON is out of scope; this is only used to build topics/keys.
func observationName(typ string) string {
	parts := strings.Split(typ, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		if len(p) > 1 {
			b.WriteString(strings.ToLower(p[1:]))
		}
	}
	return b.String()
}

func dataItemKey(di *DataItem) string {
	key := strings.ToLower(string(di.Category)) + ":" + di.ObservationName
	if di.Special == ThreeSpaceClass {
		key += ":3D"
	}
	return key
}

func topicPath(dev *Device, di *DataItem) string {
	var ancestors []string
	for c := di.Component; c != nil && c.Parent != nil; c = c.Parent {
		ancestors = append([]string{c.Name}, ancestors...)
	}
	segs := []string{dev.Name}
	segs = append(segs, ancestors...)
	segs = append(segs, strings.ToLower(string(di.Category)))
	segs = append(segs, fmt.Sprintf("%s[%s]", di.ObservationName, di.Name))
	return strings.Join(segs, "/")
}
