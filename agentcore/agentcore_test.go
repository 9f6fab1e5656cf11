package agentcore

import (
	"strings"
	"testing"
	"time"

	"github.com/mtconnect-go/agent/asset"
	"github.com/mtconnect-go/agent/devtools/tassert"
	"github.com/mtconnect-go/agent/model"
)

func testDevice() *model.Device {
	avail := &model.DataItem{ID: "avail", Name: "avail", Type: "AVAILABILITY", Category: model.Event}
	assetChg := &model.DataItem{ID: "asset_chg", Name: AssetChangedKey, Type: "ASSET_CHANGED", Category: model.Event}
	ctrl := &model.Component{ID: "ctrl", Name: "controller", DataItems: []*model.DataItem{assetChg}}
	return &model.Device{
		Component: model.Component{ID: "dev1", Name: "Mill", DataItems: []*model.DataItem{avail}, Children: []*model.Component{ctrl}},
		UUID:      "uuid-1",
	}
}

func newTestCore(t *testing.T) *Core {
	dev := testDevice()
	owner := model.NewOwner(nil)
	_, err := owner.Reload([]*model.Device{dev})
	tassert.CheckError(t, err)
	return New(owner, map[string]*model.Device{"Mill": dev}, nil)
}

func TestCoreWiresSinkContractQueries(t *testing.T) {
	c := newTestCore(t)

	tassert.Errorf(t, c.GetDeviceByUUID("uuid-1") != nil, "expected device lookup by uuid to succeed")
	tassert.Errorf(t, c.GetDeviceByName("Mill") != nil, "expected device lookup by name to succeed")
	tassert.Fatalf(t, c.DefaultDevice() != nil, "expected a default device")
	tassert.Errorf(t, c.CircularBuffer() != nil, "expected a circular buffer")
	tassert.Errorf(t, c.AssetStore() != nil, "expected an asset store")
}

func TestCoreIngestsThroughInternalLoopback(t *testing.T) {
	c := newTestCore(t)

	lb := c.sources[0]
	seq := lb.(interface{ Receive(string) uint64 }).Receive("2021-01-19T10:00:00Z|avail|AVAILABLE")
	tassert.Errorf(t, seq == 1, "expected sequence 1, got %d", seq)
}

func TestAssetChangeReinjectsSyntheticObservation(t *testing.T) {
	c := newTestCore(t)

	c.Assets.Put("T1", "CuttingTool", "uuid-1", time.Unix(0, 0), "<CuttingTool/>")

	obs := c.Buffer.At(1)
	tassert.Fatalf(t, obs != nil, "expected asset_chg observation to reach the buffer")
	tassert.Errorf(t, obs.Scalar == "T1", "expected scalar T1, got %q", obs.Scalar)
}

func TestAssetCommandReachesAssetStoreThroughPipeline(t *testing.T) {
	c := newTestCore(t)
	lb := c.sources[0].(interface{ Receive(string) uint64 })

	lb.Receive(`2021-01-19T10:00:00Z|@ASSET@|T1|CuttingTool|<CuttingTool id="T1"/>`)

	a := c.Assets.Get("T1")
	tassert.Fatalf(t, a != nil, "expected @ASSET@ line to reach the asset store through T11")
	tassert.Errorf(t, a.Type == "CuttingTool", "expected asset type CuttingTool, got %q", a.Type)
	tassert.Errorf(t, a.DeviceUUID == "uuid-1", "expected the asset command to carry the current device's uuid, got %q", a.DeviceUUID)

	lb.Receive(`2021-01-19T10:01:00Z|@REMOVE_ASSET@|T1`)
	a = c.Assets.Get("T1")
	tassert.Fatalf(t, a != nil, "expected the tombstoned asset to remain queryable")
	tassert.Errorf(t, a.Removed, "expected @REMOVE_ASSET@ to tombstone the asset")
}

func TestDiagnosticsRendersCheckpointAndAssets(t *testing.T) {
	c := newTestCore(t)
	lb := c.sources[0].(interface{ Receive(string) uint64 })
	lb.Receive("2021-01-19T10:00:00Z|avail|AVAILABLE")
	c.Assets.Put("T1", "CuttingTool", "uuid-1", time.Unix(0, 0), "<CuttingTool/>")

	out, err := c.Diagnostics(asset.Filter{})
	tassert.CheckError(t, err)
	tassert.Errorf(t, strings.Contains(out, "AVAILABLE"), "expected diagnostics to include the checkpoint, got %s", out)
	tassert.Errorf(t, strings.Contains(out, "CuttingTool"), "expected diagnostics to include the asset store, got %s", out)
}

func TestReloadRebindsSurvivingDataItems(t *testing.T) {
	c := newTestCore(t)
	lb := c.sources[0].(interface{ Receive(string) uint64 })
	lb.Receive("2021-01-19T10:00:00Z|avail|AVAILABLE")

	dev2 := testDevice()
	_, err := c.Reload([]*model.Device{dev2})
	tassert.CheckError(t, err)

	obs := c.Buffer.At(1)
	tassert.Fatalf(t, obs != nil, "expected the original observation to survive the reload")
	tassert.Errorf(t, !obs.Orphan, "expected the surviving data item to rebind instead of orphaning")
}
