package pipeline

import (
	"github.com/mtconnect-go/agent/buffer"
	"github.com/mtconnect-go/agent/model"
)

// Config bundles everything the canonical T1-T11 chain needs to bind
// against a running agent: the model owner, the destination buffer, and
// the adapter options T5 can override at runtime (spec.md §6).
type Config struct {
	ModelOwner         *model.Owner
	Buffer             *buffer.Buffer
	Devices            map[string]*model.Device
	UpcaseDataItemValue bool
	Sinks              []Sink
}

// BuildCanonical assembles the canonical ingest chain in the order
// named by spec.md §4.5's transform table (T4/T5 reordered ahead of
// T1 so multiline assembly and protocol control lines are resolved on
// raw text before tokenization; see DESIGN.md for the rationale).
func BuildCanonical(cfg Config, ctx *AdapterContext) *Pipeline {
	p := New()
	p.Append(NewAssetMultiLineAssembler())
	p.Append(NewProtocolCommandHandler(cfg.ModelOwner, ctx, cfg.Devices))
	p.Append(NewTokenizer())
	p.Append(NewTimestampExtractor())
	p.Append(NewShdrTokenMapper(cfg.ModelOwner, ctx))
	p.Append(NewRateFilter())
	p.Append(NewDuplicateFilter(cfg.Buffer.Latest()))
	p.Append(NewUpcaseValue(cfg.UpcaseDataItemValue))
	p.Append(NewUnitConverter(ctx))
	p.Append(NewDeliverObservation(cfg.Buffer, cfg.Sinks...))
	p.Append(NewDeliverAsset(cfg.Sinks...))
	return p
}
