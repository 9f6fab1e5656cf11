// Package agentcore is the C8 orchestrator: it binds the device model,
// circular buffer, canonical pipeline, asset store, sources, and sinks
// into one running agent, and sequences their startup/shutdown. Grounded
// on ais/daemon.go's rungroup (goroutine-per-runner, first-failure
// triggers shutdown of the rest), generalized here with
// golang.org/x/sync/errgroup's context-cancellation instead of
// rungroup's hand-rolled errCh fan-in, per the domain-stack mapping.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package agentcore

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mtconnect-go/agent/asset"
	"github.com/mtconnect-go/agent/buffer"
	"github.com/mtconnect-go/agent/cmn"
	"github.com/mtconnect-go/agent/cmn/cos"
	"github.com/mtconnect-go/agent/hk"
	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/pipeline"
	"github.com/mtconnect-go/agent/source"
	"github.com/mtconnect-go/agent/stats"
)

// Conventional data item keys a device may expose so asset mutations
// are observable through the normal buffer/checkpoint path, per
// spec.md §4.6's synthetic ASSET_CHANGED/ASSET_REMOVED events.
const (
	AssetChangedKey = "asset_changed"
	AssetRemovedKey = "asset_removed"
)

// Core is the agent's top-level runner: the one long-lived object a
// cmd/mtcagentd main() constructs and calls Run on.
type Core struct {
	mu sync.Mutex

	ModelOwner *model.Owner
	Buffer     *buffer.Buffer
	Assets     *asset.Store
	Pipeline   *pipeline.Pipeline
	AdapterCtx *pipeline.AdapterContext
	HK         *hk.Registry
	Stats      *stats.Tracker

	sources []source.SourceContract
	sinks   []pipeline.Sink

	// internalSource feeds synthetic entities (asset change re-entry)
	// through the same canonical pipeline every real source uses.
	internalSource *source.Loopback

	publishers []func(interface{})
}

// interface guards
var (
	_ cos.Runner           = (*Core)(nil)
	_ source.SinkContract  = (*Core)(nil)
	_ asset.ChangeNotifier = (*Core)(nil)
	_ pipeline.Sink        = (*Core)(nil)
)

// New builds a Core from a loaded device model and config, wiring the
// canonical T1-T11 chain, a housekeeping registry, and a stats tracker.
// The Core itself always rides along as a pipeline.Sink — it is what
// dispatches T11's AssetCommand into the Asset Store (C6) — so any
// caller-supplied sinks are appended alongside it rather than replacing
// it.
func New(owner *model.Owner, devices map[string]*model.Device, sinks []pipeline.Sink) *Core {
	cfg := cmn.GCO.Get()

	buf := buffer.New(cfg.BufferSize, cfg.CheckpointFrequency)
	assets := asset.New(cfg.MaxAssets)

	var defaultDevice *model.Device
	for _, d := range devices {
		defaultDevice = d
		break
	}
	ctx := pipeline.NewAdapterContext(defaultDevice)
	ctx.ConversionRequired = &cfg.ConversionRequired

	c := &Core{
		ModelOwner: owner,
		Buffer:     buf,
		Assets:     assets,
		AdapterCtx: ctx,
		HK:         hk.New(),
		Stats:      stats.New(cfg.StatsInterval()),
	}
	c.sinks = append(append([]pipeline.Sink{}, sinks...), c)

	p := pipeline.BuildCanonical(pipeline.Config{
		ModelOwner:          owner,
		Buffer:              buf,
		Devices:             devices,
		UpcaseDataItemValue: cfg.UpcaseDataItemValue,
		Sinks:               c.sinks,
	}, ctx)
	c.Pipeline = p

	c.internalSource = source.NewLoopback("internal", defaultDevice, p)
	c.sources = append(c.sources, c.internalSource)
	assets.Notifier = c

	c.HK.Reg("asset-store.evict-sweep", c.assetEvictSweep, time.Minute)
	return c
}

func (c *Core) Name() string { return "agentcore" }

// Run starts every sub-runner (housekeeper, stats tracker, any source
// that is itself a cos.Runner) under an errgroup: the first failure
// cancels the shared context, and every runner's Stop is then invoked
// with the context's error (context.Canceled, not the failure itself,
// which Run logs and returns) so shutdown order never depends on which
// runner happened to fail (spec.md's orchestration requirement, grounded on
// ais/daemon.go's rungroup.run).
func (c *Core) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	runners := []cos.Runner{c.HK, c.Stats}
	for _, s := range c.sources {
		if r, ok := s.(cos.Runner); ok {
			runners = append(runners, r)
		}
	}

	for _, r := range runners {
		r := r
		g.Go(func() error { return r.Run() })
	}

	stopAll := func(err error) {
		for _, r := range runners {
			r.Stop(err)
		}
	}
	go func() {
		<-gctx.Done()
		stopAll(gctx.Err())
	}()

	err := g.Wait()
	if err != nil {
		glog.Warningf("agentcore: a runner exited with error: %v", err)
	}
	return err
}

func (c *Core) Stop(err error) {
	if err != nil {
		glog.Warningf("agentcore: stopping: %v", err)
	}
	c.HK.Stop(err)
	c.Stats.Stop(err)
}

// AddSource registers a source and, if it is a cos.Runner, it will be
// started on the next Run. Sources added after Run has started are not
// retroactively started; spec.md's reload story does not require hot
// source attachment.
func (c *Core) AddSource(s source.SourceContract) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, s)
}

// Publish fans a rendered payload out to every registered external
// publisher (an HTTP document cache refresh, an MQTT bridge, ...); none
// are wired by default since those transports are external collaborators
// (spec.md §1).
func (c *Core) Publish(payload interface{}) {
	c.mu.Lock()
	pubs := append([]func(interface{}){}, c.publishers...)
	c.mu.Unlock()
	for _, fn := range pubs {
		fn(payload)
	}
}

func (c *Core) AddPublisher(fn func(interface{})) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishers = append(c.publishers, fn)
}

func (c *Core) GetDeviceByName(name string) *model.Device { return c.ModelOwner.Get().LookupDevice(name) }
func (c *Core) GetDeviceByUUID(uuid string) *model.Device { return c.ModelOwner.Get().LookupDevice(uuid) }

func (c *Core) DefaultDevice() *model.Device {
	m := c.ModelOwner.Get()
	if len(m.Devices) == 0 {
		return nil
	}
	return m.Devices[0]
}

func (c *Core) GetDataItemByID(id string) *model.DataItem { return c.ModelOwner.Get().DataItemByID(id) }

func (c *Core) GetDataItemsForPath(device *model.Device, path string) []*model.DataItem {
	return c.ModelOwner.Get().DataItemsForPath(device, path)
}

func (c *Core) CircularBuffer() *buffer.Buffer { return c.Buffer }
func (c *Core) AssetStore() *asset.Store       { return c.Assets }

// Reload installs a new device model, rebinds every live observation in
// the buffer/checkpoints to the new data item ids, and re-points the
// adapter context at the (possibly replaced) default device, matching
// spec.md §4.1/§9's "reload fails atomically, surviving data items keep
// their history" requirement.
func (c *Core) Reload(devices []*model.Device) (*model.ReloadResult, error) {
	result, err := c.ModelOwner.Reload(devices)
	if err != nil {
		return nil, errors.Wrap(err, "agentcore: reload")
	}
	byOldID := make(map[string]*model.DataItem, len(result.IDRemap))
	for oldID, newID := range result.IDRemap {
		if di := result.NewModel.DataItemByID(newID); di != nil {
			byOldID[oldID] = di
		}
	}
	c.Buffer.UpdateDataItems(byOldID)

	if cur := c.AdapterCtx.CurrentDevice(); cur != nil {
		if replacement := result.NewModel.LookupDevice(cur.UUID); replacement != nil {
			c.AdapterCtx.SetCurrentDevice(replacement)
		}
	}
	for _, uuid := range result.UUIDChanged {
		glog.Infof("agentcore: device uuid changed to %q across reload", uuid)
	}
	return result, nil
}

// ObservationDelivered implements pipeline.Sink's other half: it counts
// every observation T10 accepted into the buffer. Callers wanting the
// sequence number itself (an HTTP long-poll, an MQTT bridge) register
// their own Sink alongside Core instead of reading it from here.
func (c *Core) ObservationDelivered(seq uint64) {
	c.Stats.Add(stats.ObservationsAppended, 1)
}

// AssetDelivered implements pipeline.Sink: it is T11, executing the
// add/update/remove/remove-all command T3/T4 assembled against the
// Asset Store (spec.md §4.5/§4.6, scenario S6). Store.Put/Remove's
// ChangeNotifier callback (AssetChanged/AssetRemoved below) re-injects
// the synthetic observation, so this method only needs to dispatch on
// Kind.
func (c *Core) AssetDelivered(cmd pipeline.AssetCommand) {
	switch cmd.Kind {
	case "ASSET", "UPDATE_ASSET":
		c.Assets.Put(cmd.AssetID, cmd.AssetType, cmd.DeviceKey, cmd.Timestamp, cmd.Body)
	case "REMOVE_ASSET":
		c.Assets.Remove(cmd.AssetID, cmd.Timestamp)
	case "REMOVE_ALL_ASSETS":
		c.Assets.RemoveAll(cmd.DeviceKey, cmd.AssetType, cmd.Timestamp)
	default:
		glog.Warningf("agentcore: unrecognized asset command kind %q from %s", cmd.Kind, cmd.Source)
	}
}

// AssetChanged implements asset.ChangeNotifier: it re-injects a
// synthetic observation against the owning device's asset_changed data
// item (if the device model defines one), so asset mutations are
// observable through the ordinary buffer/checkpoint/sink path exactly
// like any SHDR-sourced event (spec.md §4.6).
func (c *Core) AssetChanged(deviceUUID, assetType, id string, ts time.Time) {
	c.injectAssetEvent(deviceUUID, AssetChangedKey, id, ts)
}

func (c *Core) AssetRemoved(deviceUUID, assetType, id string, ts time.Time) {
	c.injectAssetEvent(deviceUUID, AssetRemovedKey, id, ts)
}

func (c *Core) injectAssetEvent(deviceUUID, key, id string, ts time.Time) {
	dev := c.ModelOwner.Get().LookupDevice(deviceUUID)
	if dev == nil {
		return
	}
	di := c.ModelOwner.Get().LookupDataItem(dev, key)
	if di == nil {
		return
	}
	c.internalSource.InjectTimestamped([]string{di.Name, id}, ts)
}

// Diagnostics renders the live checkpoint and asset store as one JSON
// document for an operator-facing debug endpoint; it is the only
// caller of Checkpoint.DumpJSON/Store.DumpJSON, which otherwise have no
// production path.
func (c *Core) Diagnostics(assetFilter asset.Filter) (string, error) {
	cpJSON, err := c.Buffer.Latest().DumpJSON()
	if err != nil {
		return "", errors.Wrap(err, "agentcore: checkpoint dump")
	}
	assetsJSON, err := c.Assets.DumpJSON(assetFilter)
	if err != nil {
		return "", errors.Wrap(err, "agentcore: asset dump")
	}
	type diagnostics struct {
		Checkpoint jsoniter.RawMessage `json:"checkpoint"`
		Assets     jsoniter.RawMessage `json:"assets"`
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(&diagnostics{
		Checkpoint: jsoniter.RawMessage(cpJSON),
		Assets:     jsoniter.RawMessage(assetsJSON),
	})
}

// assetEvictSweep is the housekeeping-registered sweep that keeps the
// asset store within its configured per-type bound; Store already
// evicts inline on every Put, so this sweep only adds the store's
// current asset count (tombstones included) to the cumulative
// AssetsStored stat once a minute, grounded on cluster/lom_cache_hk.go's periodic
// self-rescheduling housekeep() shape.
func (c *Core) assetEvictSweep() time.Duration {
	n := c.Assets.Count("", true)
	c.Stats.Add(stats.AssetsStored, int64(n))
	return time.Minute
}
