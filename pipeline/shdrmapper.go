package pipeline

import (
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/observation"
)

// ShdrTokenMapper is T3: resolves each key in a timestamped token list
// to a DataItem on the adapter's current device, coerces the following
// value(s) by category/representation, and emits one ObservationEntity
// per data item. Tokens beginning with '@' are routed to asset command
// handling instead. Grounded on
// original_source/src/source/shdr_token_mapper.hpp.
type ShdrTokenMapper struct {
	ModelOwner *model.Owner
	Ctx        *AdapterContext

	mu      sync.Mutex
	logOnce map[string]bool // "source:key" seen once
}

func NewShdrTokenMapper(owner *model.Owner, ctx *AdapterContext) *ShdrTokenMapper {
	return &ShdrTokenMapper{ModelOwner: owner, Ctx: ctx, logOnce: make(map[string]bool)}
}

func (m *ShdrTokenMapper) Name() string { return "ShdrTokenMapper" }

func (m *ShdrTokenMapper) Accepts(e Entity) bool {
	_, ok := e.(Timestamped)
	return ok
}

func (m *ShdrTokenMapper) Apply(e Entity) ([]Entity, error) {
	ts := e.(Timestamped)
	if len(ts.Tokens) > 0 && strings.HasPrefix(ts.Tokens[0], "@") {
		return m.mapAssetCommand(ts)
	}

	device := m.Ctx.CurrentDevice()
	mdl := m.ModelOwner.Get()

	var out []Entity
	i := 0
	for i < len(ts.Tokens) {
		key := ts.Tokens[i]
		if key == "" {
			i++
			continue
		}
		di := mdl.LookupDataItem(device, key)
		if di == nil {
			m.logUnknownOnce(ts.Source, key)
			i += 2
			continue
		}

		var obs *observation.Observation
		var err error
		switch {
		case di.Category == model.Condition:
			rest := ts.Tokens[i+1:]
			var level, code, sev, qual, msg string
			for idx, dst := range []*string{&level, &code, &sev, &qual, &msg} {
				if idx < len(rest) {
					*dst = rest[idx]
				}
			}
			i += 6
			obs, err = observation.New(di, observation.Props{
				Level:          observation.ConditionLevel(level),
				NativeCode:     code,
				NativeSeverity: sev,
				Qualifier:      qual,
				Message:        msg,
			}, ts.Timestamp)
		case di.IsDataSet():
			value := ""
			if i+1 < len(ts.Tokens) {
				value = ts.Tokens[i+1]
			}
			i += 2
			set, reset := ParseDataSetToken(value)
			obs, err = observation.New(di, observation.Props{Set: set, ResetTriggered: reset}, ts.Timestamp)
		default:
			value := ""
			if i+1 < len(ts.Tokens) {
				value = ts.Tokens[i+1]
			}
			i += 2
			obs, err = observation.New(di, observation.Props{Value: value, HasValue: true}, ts.Timestamp)
		}

		if err != nil {
			glog.V(2).Infof("shdr token mapper: %s: %v", ts.Source, err)
			continue
		}
		out = append(out, ObservationEntity{Obs: obs})
	}
	return out, nil
}

func (m *ShdrTokenMapper) logUnknownOnce(source, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seenKey := source + ":" + key
	if m.logOnce[seenKey] {
		return
	}
	m.logOnce[seenKey] = true
	glog.Warningf("shdr token mapper: %s: unknown data item key %q", source, key)
}

var assetCommandKinds = map[string]string{
	"@ASSET@":             "ASSET",
	"@REMOVE_ASSET@":      "REMOVE_ASSET",
	"@REMOVE_ALL_ASSETS@": "REMOVE_ALL_ASSETS",
	"@UPDATE_ASSET@":      "UPDATE_ASSET",
}

func (m *ShdrTokenMapper) mapAssetCommand(ts Timestamped) ([]Entity, error) {
	kind, ok := assetCommandKinds[ts.Tokens[0]]
	if !ok {
		glog.Warningf("shdr token mapper: %s: unrecognized command %q", ts.Source, ts.Tokens[0])
		return nil, nil
	}
	rest := ts.Tokens[1:]
	cmd := AssetCommand{Source: ts.Source, Kind: kind, Timestamp: ts.Timestamp}
	if device := m.Ctx.CurrentDevice(); device != nil {
		cmd.DeviceKey = device.UUID
	}
	// @REMOVE_ALL_ASSETS@ takes a bare type (spec.md §6: "<ts>|
	// @REMOVE_ALL_ASSETS@|<type>"); every other kind takes an id first.
	if kind == "REMOVE_ALL_ASSETS" {
		if len(rest) > 0 {
			cmd.AssetType = rest[0]
		}
	} else {
		if len(rest) > 0 {
			cmd.AssetID = rest[0]
		}
		if len(rest) > 1 {
			cmd.AssetType = rest[1]
		}
		if len(rest) > 2 {
			cmd.Body = rest[2]
		}
	}
	return []Entity{cmd}, nil
}
