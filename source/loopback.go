package source

import (
	"time"

	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/pipeline"
)

// Loopback is the reference SourceContract implementation: it feeds
// text directly into a Pipeline with no network transport underneath,
// used for tests, internal synthetic event injection (e.g. the asset
// store's ASSET_CHANGED/ASSET_REMOVED re-entry), and as a template for
// a real adapter-socket source (grounded on
// original_source/src/source/loopback_source.hpp).
type Loopback struct {
	name    string
	device  *model.Device
	options map[string]string
	p       *pipeline.Pipeline
}

func NewLoopback(name string, device *model.Device, p *pipeline.Pipeline) *Loopback {
	return &Loopback{name: name, device: device, options: map[string]string{}, p: p}
}

func (l *Loopback) Identity() string                { return l.name }
func (l *Loopback) CurrentDevice() *model.Device     { return l.device }
func (l *Loopback) Options() map[string]string       { return l.options }
func (l *Loopback) Connected(identities []string)    {}
func (l *Loopback) Disconnected(identities []string) {}

// ProtocolCommand and ProcessData both simply hand the raw line to the
// pipeline as a RawLine entity; T5's guard on a leading '*' is what
// actually distinguishes control lines from data lines, so both paths
// converge here exactly as they do for a real socket adapter.
func (l *Loopback) ProtocolCommand(text string) { l.p.Run(pipeline.RawLine{Source: l.name, Text: text}) }
func (l *Loopback) ProcessData(text string)     { l.p.Run(pipeline.RawLine{Source: l.name, Text: text}) }

// Receive is the synchronous convenience entry point tests and internal
// callers use in place of a socket: run one line through the pipeline
// and return the sequence number assigned, or 0 if nothing was
// appended (orphan, no-op data-set update, or filtered out).
func (l *Loopback) Receive(text string) uint64 {
	results, err := l.p.Run(pipeline.RawLine{Source: l.name, Text: text})
	if err != nil || len(results) == 0 {
		return 0
	}
	if oe, ok := results[0].(pipeline.ObservationEntity); ok {
		return oe.Obs.Sequence
	}
	return 0
}

// InjectTimestamped lets internal producers (the asset store's change
// notifications) hand already-parsed tokens straight to T3 onward,
// skipping tokenization for synthetic events that were never raw SHDR
// text to begin with.
func (l *Loopback) InjectTimestamped(tokens []string, ts time.Time) {
	l.p.Run(pipeline.Timestamped{Source: l.name, Tokens: tokens, Timestamp: ts})
}
