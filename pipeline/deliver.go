package pipeline

import "github.com/mtconnect-go/agent/buffer"

// Sink receives observations/assets that made it through the whole
// chain, per spec.md §4.5 T10/T11 and §8 (the SourceContract/SinkContract
// boundary implemented in package source).
type Sink interface {
	ObservationDelivered(seq uint64)
	AssetDelivered(cmd AssetCommand)
}

// DeliverObservation is T10: appends to the circular buffer and, if the
// append was accepted (not an orphan or no-op data-set drop), notifies
// every registered sink.
type DeliverObservation struct {
	Buffer *buffer.Buffer
	Sinks  []Sink
}

func NewDeliverObservation(buf *buffer.Buffer, sinks ...Sink) *DeliverObservation {
	return &DeliverObservation{Buffer: buf, Sinks: sinks}
}

func (d *DeliverObservation) Name() string { return "DeliverObservation" }

func (d *DeliverObservation) Accepts(e Entity) bool {
	_, ok := e.(ObservationEntity)
	return ok
}

func (d *DeliverObservation) Apply(e Entity) ([]Entity, error) {
	oe := e.(ObservationEntity)
	seq, ok := d.Buffer.Append(oe.Obs)
	if !ok {
		return nil, nil
	}
	for _, s := range d.Sinks {
		s.ObservationDelivered(seq)
	}
	return []Entity{oe}, nil
}

// DeliverAsset is T11: hands an assembled asset ingest/command to every
// registered sink. agentcore.Core is always one of those sinks; its
// AssetDelivered applies the command against the Asset Store (C6),
// whose ChangeNotifier callback emits the synthetic
// ASSET_CHANGED/ASSET_REMOVED observation that re-enters the pipeline.
type DeliverAsset struct {
	Sinks []Sink
}

func NewDeliverAsset(sinks ...Sink) *DeliverAsset { return &DeliverAsset{Sinks: sinks} }

func (d *DeliverAsset) Name() string { return "DeliverAsset" }

func (d *DeliverAsset) Accepts(e Entity) bool {
	switch e.(type) {
	case AssetCommand, MultilineAssetIngest:
		return true
	default:
		return false
	}
}

func (d *DeliverAsset) Apply(e Entity) ([]Entity, error) {
	cmd, ok := e.(AssetCommand)
	if !ok {
		ingest := e.(MultilineAssetIngest)
		cmd = AssetCommand{Source: ingest.Source, Kind: "ASSET", Body: ingest.Body, Timestamp: ingest.Timestamp}
	}
	for _, s := range d.Sinks {
		s.AssetDelivered(cmd)
	}
	return []Entity{cmd}, nil
}
