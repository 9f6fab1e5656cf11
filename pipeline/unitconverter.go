package pipeline

import "github.com/mtconnect-go/agent/model"

// UnitConverter is T9: applies a SAMPLE DataItem's cached (factor,
// offset) conversion to its scalar or vector value. A no-op when the
// adapter's conversionRequired option is false or no conversion was
// derived (spec.md §4.5 T9, §4.2).
type UnitConverter struct {
	Ctx *AdapterContext
}

func NewUnitConverter(ctx *AdapterContext) *UnitConverter { return &UnitConverter{Ctx: ctx} }

func (u *UnitConverter) Name() string { return "UnitConverter" }

func (u *UnitConverter) Accepts(e Entity) bool {
	oe, ok := e.(ObservationEntity)
	return ok && oe.Obs.DataItem.Category == model.Sample
}

func (u *UnitConverter) Apply(e Entity) ([]Entity, error) {
	oe := e.(ObservationEntity)
	obs := oe.Obs
	di := obs.DataItem

	if u.Ctx != nil && u.Ctx.ConversionRequired != nil && !*u.Ctx.ConversionRequired {
		return []Entity{e}, nil
	}
	if di.Conversion == nil || di.Conversion.IsIdentity() || obs.IsUnavailable() {
		return []Entity{e}, nil
	}

	if obs.Vector != nil {
		obs.Vector = di.Conversion.ConvertVector(obs.Vector)
	} else if obs.IsNumeric {
		obs.Numeric = di.Conversion.Convert(obs.Numeric)
	}
	return []Entity{e}, nil
}
