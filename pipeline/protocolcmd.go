package pipeline

import (
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/mtconnect-go/agent/model"
)

// ProtocolCommandHandler is T5: interprets adapter control lines
// beginning with '*' — identity announcements (uuid, manufacturer,
// serialNumber, station, device), calibration updates, and the
// conversionRequired/relativeTime/realTime option toggles (spec.md
// §4.5 T5). Calibration updates the target DataItem's conversion
// factor/offset atomically through model.Owner so concurrent readers
// never see a half-applied calibration.
type ProtocolCommandHandler struct {
	ModelOwner *model.Owner
	Ctx        *AdapterContext
	Devices    map[string]*model.Device // device key/uuid/name -> device, for "* device:" switches
}

func NewProtocolCommandHandler(owner *model.Owner, ctx *AdapterContext, devices map[string]*model.Device) *ProtocolCommandHandler {
	return &ProtocolCommandHandler{ModelOwner: owner, Ctx: ctx, Devices: devices}
}

func (p *ProtocolCommandHandler) Name() string { return "ProtocolCommandHandler" }

func (p *ProtocolCommandHandler) Accepts(e Entity) bool {
	raw, ok := e.(RawLine)
	return ok && strings.HasPrefix(strings.TrimSpace(raw.Text), "*")
}

func (p *ProtocolCommandHandler) Apply(e Entity) ([]Entity, error) {
	raw := e.(RawLine)
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw.Text), "*"))
	key, value, ok := strings.Cut(body, ":")
	if !ok {
		glog.Warningf("protocol command handler: %s: malformed control line %q", raw.Source, raw.Text)
		return nil, nil
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch strings.ToLower(key) {
	case "uuid":
		p.Ctx.UUID = value
	case "manufacturer":
		p.Ctx.Manufacturer = value
	case "serialnumber":
		p.Ctx.SerialNumber = value
	case "station":
		p.Ctx.Station = value
	case "device":
		if d, ok := p.Devices[value]; ok {
			p.Ctx.SetCurrentDevice(d)
		} else {
			glog.Warningf("protocol command handler: %s: unknown device %q", raw.Source, value)
		}
	case "calibration":
		p.applyCalibration(raw.Source, value)
	case "conversionrequired":
		b := parseYesNo(value)
		p.Ctx.ConversionRequired = &b
	case "relativetime":
		b := parseYesNo(value)
		p.Ctx.RelativeTime = &b
	case "realtime":
		b := parseYesNo(value)
		p.Ctx.RealTime = &b
	default:
		glog.V(2).Infof("protocol command handler: %s: unrecognized key %q", raw.Source, key)
	}
	return nil, nil
}

func parseYesNo(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "yes" || v == "true" || v == "1"
}

// applyCalibration parses "name|factor|offset[|...]" entries and
// updates the matching DataItem's cached conversion in place.
func (p *ProtocolCommandHandler) applyCalibration(source, value string) {
	fields := strings.Split(value, "|")
	for i := 0; i+2 < len(fields); i += 3 {
		name := strings.TrimSpace(fields[i])
		factor, err1 := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		offset, err2 := strconv.ParseFloat(strings.TrimSpace(fields[i+2]), 64)
		if err1 != nil || err2 != nil {
			glog.Warningf("protocol command handler: %s: malformed calibration entry %q", source, strings.Join(fields[i:i+3], "|"))
			continue
		}
		di := p.ModelOwner.Get().LookupDataItem(p.Ctx.CurrentDevice(), name)
		if di == nil {
			glog.Warningf("protocol command handler: %s: calibration for unknown data item %q", source, name)
			continue
		}
		di.Conversion = &model.Conversion{Factor: factor, Offset: offset}
	}
}
