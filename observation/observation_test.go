package observation

import (
	"testing"
	"time"

	"github.com/mtconnect-go/agent/devtools/tassert"
	"github.com/mtconnect-go/agent/model"
)

func TestNewSampleValue(t *testing.T) {
	di := &model.DataItem{ID: "d1", Category: model.Sample, Representation: model.Value}
	o, err := New(di, Props{Value: "12.5", HasValue: true}, time.Unix(0, 0))
	tassert.CheckError(t, err)
	tassert.Errorf(t, o.Numeric == 12.5, "expected 12.5, got %v", o.Numeric)
}

func TestNewSampleValueRejectsNonNumeric(t *testing.T) {
	di := &model.DataItem{ID: "d1", Category: model.Sample, Representation: model.Value}
	_, err := New(di, Props{Value: "not-a-number", HasValue: true}, time.Unix(0, 0))
	tassert.Fatalf(t, err != nil, "expected non-numeric scalar to fail SAMPLE.VALUE validation")
}

func TestNewConditionRequiresLevel(t *testing.T) {
	di := &model.DataItem{ID: "lp", Category: model.Condition}
	_, err := New(di, Props{}, time.Unix(0, 0))
	tassert.Fatalf(t, err != nil, "expected missing level to fail")

	o, err := New(di, Props{Level: Fault, Code: "2218"}, time.Unix(0, 0))
	tassert.CheckError(t, err)
	tassert.Errorf(t, o.Level == Fault && o.Code == "2218", "unexpected condition fields: %+v", o)
}

func TestUnavailableLegalForEveryCategory(t *testing.T) {
	for _, cat := range []model.Category{model.Sample, model.Event, model.Condition} {
		di := &model.DataItem{ID: "x", Category: cat}
		o, err := New(di, Props{Value: UnavailableValue, HasValue: true}, time.Unix(0, 0))
		tassert.CheckError(t, err)
		tassert.Errorf(t, o.IsUnavailable(), "expected IsUnavailable() for category %s", cat)
	}
}

func TestNewDataSetRequiresSetOrReset(t *testing.T) {
	di := &model.DataItem{ID: "vars", Category: model.Event, Representation: model.DataSet}
	_, err := New(di, Props{Value: "1", HasValue: true}, time.Unix(0, 0))
	tassert.Fatalf(t, err != nil, "expected a bare scalar to fail DATA_SET validation")

	o, err := New(di, Props{Set: DataSet{"a": {Value: 1.0}}}, time.Unix(0, 0))
	tassert.CheckError(t, err)
	tassert.Errorf(t, len(o.Set) == 1, "expected one entry in the data set")
}

func TestCopyDoesNotAliasVectorOrSet(t *testing.T) {
	di := &model.DataItem{ID: "vars", Category: model.Event, Representation: model.DataSet}
	o, err := New(di, Props{Set: DataSet{"a": {Value: 1.0}}}, time.Unix(0, 0))
	tassert.CheckError(t, err)

	cp := o.Copy()
	cp.Set["a"] = DataSetEntry{Value: 2.0}
	tassert.Errorf(t, o.Set["a"].Value == 1.0, "expected original set to be unaffected by copy mutation")
}
