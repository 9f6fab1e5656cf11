package pipeline

import (
	"strconv"
	"testing"
	"time"

	"github.com/mtconnect-go/agent/buffer"
	"github.com/mtconnect-go/agent/devtools/tassert"
	"github.com/mtconnect-go/agent/model"
	"github.com/mtconnect-go/agent/observation"
)

func TestTokenizeSplitsOnPipeWithEscaping(t *testing.T) {
	toks := Tokenize(`2021-01-19T10:00:00Z|lp|"a\|b"|vars|{k=1}`)
	tassert.Fatalf(t, len(toks) == 5, "expected 5 tokens, got %d: %+v", len(toks), toks)
	tassert.Errorf(t, toks[2] == `a\|b`, "expected pipe inside quotes kept in one token (backslash kept), got %q", toks[2])
	tassert.Errorf(t, toks[4] == "{k=1}", "expected braced token kept intact, got %q", toks[4])
}

func TestParseDataSetTokenMergeAndReset(t *testing.T) {
	set, reset := ParseDataSetToken("a=1 b=2 c=")
	tassert.Errorf(t, reset == "", "expected no reset tag")
	tassert.Errorf(t, len(set) == 3, "expected 3 entries, got %d", len(set))
	tassert.Errorf(t, set["c"].Removed, "expected empty value to mark removal")

	set, reset = ParseDataSetToken("RESET|d=10")
	tassert.Errorf(t, reset == "RESET", "expected RESET tag")
	tassert.Errorf(t, len(set) == 1 && set["d"].Value == 10.0, "expected {d:10}, got %+v", set)
}

func TestParseDataSetTokenQuotedValues(t *testing.T) {
	set, _ := ParseDataSetToken(`a="x y" b=2 c='it\'s ok'`)
	tassert.Errorf(t, len(set) == 3, "expected 3 entries, got %d: %+v", len(set), set)
	tassert.Errorf(t, set["a"].Value == "x y", "expected quoted value to keep its embedded space, got %+v", set["a"])
	tassert.Errorf(t, set["b"].Value == 2.0, "expected unquoted numeric value, got %+v", set["b"])
	tassert.Errorf(t, set["c"].Value == "it's ok", "expected backslash to escape the matching quote, got %+v", set["c"])
}

func TestParseDataSetTokenQuotedNestedInBraces(t *testing.T) {
	set, _ := ParseDataSetToken(`row={a="x y" b=1}`)
	nested, ok := set["row"].Value.(observation.DataSet)
	tassert.Fatalf(t, ok, "expected row to hold a nested DataSet, got %+v", set["row"])
	tassert.Errorf(t, nested["a"].Value == "x y", "expected quoted value inside a braced table row to keep its space, got %+v", nested["a"])
}

func testModel(t *testing.T) (*model.Owner, *model.Device) {
	lp := &model.DataItem{ID: "lp", Name: "lp", Type: "LINE", Category: model.Event}
	temp := &model.DataItem{ID: "temp", Name: "temp", Type: "TEMPERATURE", Category: model.Sample}
	vars := &model.DataItem{ID: "vars", Name: "vars", Type: "VARIABLES", Category: model.Event, Representation: model.DataSet}
	ctrl := &model.Component{ID: "ctrl", Name: "controller", DataItems: []*model.DataItem{lp, temp, vars}}
	dev := &model.Device{Component: model.Component{ID: "dev1", Name: "Mill", Children: []*model.Component{ctrl}}, UUID: "uuid-1"}

	owner := model.NewOwner(nil)
	_, err := owner.Reload([]*model.Device{dev})
	tassert.CheckError(t, err)
	return owner, owner.Get().LookupDevice("uuid-1")
}

func TestCanonicalChainIngestsSimpleLine(t *testing.T) {
	owner, dev := testModel(t)
	buf := buffer.New(4, 0)
	ctx := NewAdapterContext(dev)

	p := BuildCanonical(Config{ModelOwner: owner, Buffer: buf, Devices: map[string]*model.Device{"Mill": dev}}, ctx)

	results, err := p.Run(RawLine{Source: "adapter1", Text: "2021-01-19T10:00:00Z|lp|READY"})
	tassert.CheckError(t, err)
	tassert.Fatalf(t, len(results) == 1, "expected one observation to survive the chain, got %d", len(results))

	obs := buf.At(1)
	tassert.Fatalf(t, obs != nil, "expected the observation to reach the buffer")
	tassert.Errorf(t, obs.Scalar == "READY", "expected scalar READY, got %q", obs.Scalar)
}

func TestCanonicalChainDropsDuplicateThenAcceptsChange(t *testing.T) {
	owner, dev := testModel(t)
	buf := buffer.New(4, 0)
	ctx := NewAdapterContext(dev)
	p := BuildCanonical(Config{ModelOwner: owner, Buffer: buf, Devices: map[string]*model.Device{"Mill": dev}}, ctx)

	_, err := p.Run(RawLine{Source: "a1", Text: "2021-01-19T10:00:00Z|lp|READY"})
	tassert.CheckError(t, err)
	results, err := p.Run(RawLine{Source: "a1", Text: "2021-01-19T10:00:01Z|lp|READY"})
	tassert.CheckError(t, err)
	tassert.Errorf(t, len(results) == 0, "expected duplicate value to be dropped, got %d results", len(results))
	tassert.Errorf(t, buf.Sequence() == 2, "expected sequence to stay at 2 after the dropped duplicate, got %d", buf.Sequence())

	results, err = p.Run(RawLine{Source: "a1", Text: "2021-01-19T10:00:02Z|lp|ACTIVE"})
	tassert.CheckError(t, err)
	tassert.Errorf(t, len(results) == 1, "expected a genuinely new value to pass through")
}

func TestCanonicalChainMultilineAsset(t *testing.T) {
	owner, dev := testModel(t)
	buf := buffer.New(4, 0)
	ctx := NewAdapterContext(dev)
	p := BuildCanonical(Config{ModelOwner: owner, Buffer: buf, Devices: map[string]*model.Device{"Mill": dev}}, ctx)

	_, err := p.Run(RawLine{Source: "a1", Text: "--multiline--AAAA"})
	tassert.CheckError(t, err)
	_, err = p.Run(RawLine{Source: "a1", Text: "<Part id=\"1\"/>"})
	tassert.CheckError(t, err)
	results, err := p.Run(RawLine{Source: "a1", Text: "--multiline--AAAA"})
	tassert.CheckError(t, err)
	tassert.Fatalf(t, len(results) == 1, "expected the closed multiline block to emit one asset command, got %d", len(results))
	cmd, ok := results[0].(AssetCommand)
	tassert.Fatalf(t, ok, "expected an AssetCommand result")
	tassert.Errorf(t, cmd.Kind == "ASSET", "expected kind ASSET, got %s", cmd.Kind)
}

func TestRateFilterAppliesMinimumDelta(t *testing.T) {
	delta := 2.0
	di := &model.DataItem{ID: "temp", Category: model.Sample, Filters: []model.Filter{{MinimumDelta: &delta}}}
	f := NewRateFilter()

	newSample := func(v float64, ts time.Time) *observation.Observation {
		o, err := observation.New(di, observation.Props{Value: strconv.FormatFloat(v, 'f', -1, 64), HasValue: true}, ts)
		tassert.CheckError(t, err)
		return o
	}

	out, err := f.Apply(ObservationEntity{Obs: newSample(10.0, time.Unix(0, 0))})
	tassert.CheckError(t, err)
	tassert.Errorf(t, len(out) == 1, "expected the first sample through")

	out, err = f.Apply(ObservationEntity{Obs: newSample(10.5, time.Unix(1, 0))})
	tassert.CheckError(t, err)
	tassert.Errorf(t, len(out) == 0, "expected a sub-delta change to be dropped")

	out, err = f.Apply(ObservationEntity{Obs: newSample(13.0, time.Unix(2, 0))})
	tassert.CheckError(t, err)
	tassert.Errorf(t, len(out) == 1, "expected a change exceeding the delta to pass")
}
