package pipeline

import (
	"time"

	"github.com/mtconnect-go/agent/observation"
)

// RawLine is the raw text read from a source (an adapter connection, a
// loopback test harness, ...), the input to T1 (spec.md §4.5).
type RawLine struct {
	Source string
	Text   string
}

// TokenList is the result of T1: a line split on '|' with quote/brace
// escaping resolved.
type TokenList struct {
	Source string
	Tokens []string
}

// Timestamped is the result of T2: the first token consumed as a
// timestamp, the remaining tokens carried forward.
type Timestamped struct {
	Source    string
	Tokens    []string
	Timestamp time.Time
	Duration  *time.Duration
}

// AssetCommand is emitted by T3 for @ASSET@/@REMOVE_ASSET@/
// @REMOVE_ALL_ASSETS@/@UPDATE_ASSET@ tokens and consumed by the asset
// store (C6) via T11 DeliverAsset.
type AssetCommand struct {
	Source    string
	Kind      string // ASSET, REMOVE_ASSET, REMOVE_ALL_ASSETS, UPDATE_ASSET
	DeviceKey string
	AssetID   string
	AssetType string
	Body      string
	Timestamp time.Time
}

// MultilineAssetIngest is the assembled body of a --multiline--XXX block
// (T4), ready to be parsed as an asset document.
type MultilineAssetIngest struct {
	Source    string
	Sentinel  string
	Body      string
	Timestamp time.Time
}

// ProtocolCommand is a raw adapter control line starting with '*'. No
// stage builds or accepts it: T5 takes such lines directly as RawLine.
type ProtocolCommand struct {
	Source string
	Text   string
}

// ObservationEntity carries one validated observation.Observation
// through the filtering/conversion/delivery stages (T6-T11).
type ObservationEntity struct {
	Obs *observation.Observation
}
