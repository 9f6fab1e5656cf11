// Package source implements the SourceContract/SinkContract boundary
// (spec.md §4.7) and a reference Loopback source for tests and
// synthetic/internal event injection (grounded on
// original_source/src/source/loopback_source.hpp).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package source

import (
	"github.com/mtconnect-go/agent/asset"
	"github.com/mtconnect-go/agent/buffer"
	"github.com/mtconnect-go/agent/model"
)

// SourceContract is what the pipeline/core expects of anything feeding
// it adapter data: an identity, an optional current device, an options
// bag, and the three event callbacks an adapter connection invokes.
type SourceContract interface {
	Identity() string
	CurrentDevice() *model.Device
	Options() map[string]string

	Connected(identities []string)
	Disconnected(identities []string)
	ProtocolCommand(text string)
	ProcessData(text string)
}

// SinkContract is what a sink (an HTTP printer, a message broker
// publisher, ...) is handed by the core to serve queries and receive
// pushed updates. Sinks must not be called while the buffer's lock is
// held; the core materializes copies first (spec.md §4.4/§4.7).
type SinkContract interface {
	GetDeviceByName(name string) *model.Device
	GetDeviceByUUID(uuid string) *model.Device
	DefaultDevice() *model.Device
	GetDataItemByID(id string) *model.DataItem
	GetDataItemsForPath(device *model.Device, path string) []*model.DataItem

	CircularBuffer() *buffer.Buffer
	AssetStore() *asset.Store

	AddSource(s SourceContract)

	Publish(payload interface{})
}
