package model

import (
	"testing"

	"github.com/mtconnect-go/agent/cmn"
	"github.com/mtconnect-go/agent/devtools/tassert"
)

func sampleDevice() *Device {
	lp := &DataItem{ID: "dtop_lp", Name: "lp", Type: "LINE", Category: Event}
	temp := &DataItem{ID: "dtop_temp", Name: "temp", Type: "TEMPERATURE", Category: Sample,
		Units: "CELSIUS", NativeUnits: "FAHRENHEIT"}
	ctrl := &Component{ID: "ctrl", Name: "controller", Type: "Controller", DataItems: []*DataItem{lp, temp}}
	dev := &Device{
		Component: Component{ID: "dev1", Name: "Mill", Children: []*Component{ctrl}},
		UUID:      "uuid-1",
	}
	return dev
}

func TestBuildDerivesTopicsAndConversion(t *testing.T) {
	m, err := Build([]*Device{sampleDevice()})
	tassert.CheckError(t, err)

	dev := m.LookupDevice("uuid-1")
	tassert.Fatalf(t, dev != nil, "expected device lookup by uuid to succeed")

	temp := m.LookupDataItem(dev, "temp")
	tassert.Fatalf(t, temp != nil, "expected data item lookup by name to succeed")
	tassert.Errorf(t, temp.Topic == "Mill/controller/sample/Temperature[temp]",
		"unexpected topic: %s", temp.Topic)
	tassert.Errorf(t, temp.Key == "sample:Temperature", "unexpected key: %s", temp.Key)

	tassert.Fatalf(t, temp.Conversion != nil, "expected a conversion to be derived")
	tassert.Errorf(t, temp.Conversion.Offset == -32, "expected offset -32, got %v", temp.Conversion.Offset)
	got := temp.Conversion.Convert(212)
	tassert.Errorf(t, got == 100, "expected 212F -> 100C, got %v", got)
}

func TestLookupDataItemPrefersSourceThenNameThenID(t *testing.T) {
	di := &DataItem{ID: "id1", Name: "name1", Source: "src1", Category: Event, Type: "MESSAGE"}
	c := &Component{ID: "c", Name: "c", DataItems: []*DataItem{di}}
	dev := &Device{Component: Component{ID: "d", Name: "D", Children: []*Component{c}}, UUID: "u"}
	m, err := Build([]*Device{dev})
	tassert.CheckError(t, err)

	tassert.Errorf(t, m.LookupDataItem(dev, "src1") == di, "expected source match")
	tassert.Errorf(t, m.LookupDataItem(dev, "name1") == di, "expected name match")
	tassert.Errorf(t, m.LookupDataItem(dev, "id1") == di, "expected id match")
	tassert.Errorf(t, m.LookupDataItem(dev, "nope") == nil, "expected no match")
}

func TestCategoryValidation(t *testing.T) {
	alarm := &DataItem{ID: "a1", Name: "a", Type: "ALARM", Category: Sample}
	c := &Component{ID: "c", Name: "c", DataItems: []*DataItem{alarm}}
	dev := &Device{Component: Component{ID: "d", Name: "D", Children: []*Component{c}}, UUID: "u"}
	_, err := Build([]*Device{dev})
	tassert.Fatalf(t, err != nil, "expected ALARM-as-SAMPLE to fail validation")
}

func TestReloadRemapsSurvivingIDsAndOrphansTheRest(t *testing.T) {
	owner := NewOwner(nil)
	oldDI := &DataItem{ID: "old-id", Name: "speed", Type: "ROTARY_VELOCITY", Category: Sample}
	removedDI := &DataItem{ID: "old-id-2", Name: "gone", Type: "LOAD", Category: Sample}
	oldCtrl := &Component{ID: "c", Name: "controller", DataItems: []*DataItem{oldDI, removedDI}}
	oldDev := &Device{Component: Component{ID: "d", Name: "Mill", Children: []*Component{oldCtrl}}, UUID: "u1"}

	_, err := owner.Reload([]*Device{oldDev})
	tassert.CheckError(t, err)

	newDI := &DataItem{ID: "new-id", Name: "speed", Type: "ROTARY_VELOCITY", Category: Sample}
	newCtrl := &Component{ID: "c", Name: "controller", DataItems: []*DataItem{newDI}}
	newDev := &Device{Component: Component{ID: "d", Name: "Mill", Children: []*Component{newCtrl}}, UUID: "u1"}

	result, err := owner.Reload([]*Device{newDev})
	tassert.CheckError(t, err)
	tassert.Errorf(t, result.IDRemap["old-id"] == "new-id", "expected old-id remapped to new-id, got %q", result.IDRemap["old-id"])
	_, stillThere := result.IDRemap["old-id-2"]
	tassert.Errorf(t, !stillThere, "expected removed data item to be absent from the remap (orphan)")
}

func TestReloadPreservesUUIDWhenConfigured(t *testing.T) {
	before := cmn.GCO.Get()
	cfg := *before
	cfg.PreserveUUID = true
	tassert.CheckError(t, cmn.GCO.Update(&cfg))
	defer cmn.GCO.Update(before)

	owner := NewOwner(nil)
	oldDev := &Device{Component: Component{ID: "d", Name: "Mill"}, UUID: "uuid-old"}
	_, err := owner.Reload([]*Device{oldDev})
	tassert.CheckError(t, err)

	newDev := &Device{Component: Component{ID: "d", Name: "Mill"}, UUID: "uuid-new"}
	_, err = owner.Reload([]*Device{newDev})
	tassert.CheckError(t, err)

	dev := owner.Get().LookupDevice("Mill")
	tassert.Fatalf(t, dev != nil, "expected device lookup by name to succeed")
	tassert.Errorf(t, dev.UUID == "uuid-old", "expected PreserveUUID to lock the uuid at uuid-old, got %q", dev.UUID)
	tassert.Errorf(t, owner.Get().LookupDevice("uuid-new") == nil, "expected the new uuid to never be indexed")
}

func TestReloadRejectsInvalidModelAtomically(t *testing.T) {
	owner := NewOwner(nil)
	good := sampleDevice()
	_, err := owner.Reload([]*Device{good})
	tassert.CheckError(t, err)
	before := owner.Get()

	bad := &Device{Component: Component{ID: "d2", Name: "Bad", DataItems: []*DataItem{
		{ID: "x", Name: "x", Type: "ALARM", Category: Sample},
	}}, UUID: "u2"}
	_, err = owner.Reload([]*Device{bad})
	tassert.Fatalf(t, err != nil, "expected invalid reload to fail")
	tassert.Errorf(t, owner.Get() == before, "expected model to be unchanged after a failed reload")
}
