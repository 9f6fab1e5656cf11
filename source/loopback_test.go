package source

import (
	"testing"

	"github.com/mtconnect-go/agent/buffer"
	"github.com/mtconnect-go/agent/devtools/tassert"
	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/pipeline"
)

func TestLoopbackReceiveAppendsThroughPipeline(t *testing.T) {
	lp := &model.DataItem{ID: "lp", Name: "lp", Type: "LINE", Category: model.Event}
	ctrl := &model.Component{ID: "ctrl", Name: "controller", DataItems: []*model.DataItem{lp}}
	dev := &model.Device{Component: model.Component{ID: "dev1", Name: "Mill", Children: []*model.Component{ctrl}}, UUID: "uuid-1"}

	owner := model.NewOwner(nil)
	_, err := owner.Reload([]*model.Device{dev})
	tassert.CheckError(t, err)

	buf := buffer.New(4, 0)
	ctx := pipeline.NewAdapterContext(owner.Get().LookupDevice("uuid-1"))
	p := pipeline.BuildCanonical(pipeline.Config{ModelOwner: owner, Buffer: buf, Devices: map[string]*model.Device{"Mill": dev}}, ctx)

	lb := NewLoopback("loop1", dev, p)
	seq := lb.Receive("2021-01-19T10:00:00Z|lp|READY")
	tassert.Errorf(t, seq == 1, "expected sequence 1, got %d", seq)

	obs := buf.At(1)
	tassert.Fatalf(t, obs != nil, "expected the observation to reach the buffer")
	tassert.Errorf(t, obs.Scalar == "READY", "expected READY, got %q", obs.Scalar)
}
