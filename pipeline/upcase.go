package pipeline

import (
	"strings"

	"github.com/mtconnect-go/agent/model"
)

// UpcaseValue is T8: uppercases an EVENT's string value when the global
// UpcaseDataItemValue option is set, exempting free-text items (MESSAGE
// and ALARM) whose payload is meant to be preserved verbatim.
type UpcaseValue struct {
	Enabled bool
}

func NewUpcaseValue(enabled bool) *UpcaseValue { return &UpcaseValue{Enabled: enabled} }

func (u *UpcaseValue) Name() string { return "UpcaseValue" }

func (u *UpcaseValue) Accepts(e Entity) bool {
	oe, ok := e.(ObservationEntity)
	if !ok {
		return false
	}
	di := oe.Obs.DataItem
	return u.Enabled && di.Category == model.Event && di.Special != model.MessageClass && di.Special != model.AlarmClass && oe.Obs.Scalar != ""
}

func (u *UpcaseValue) Apply(e Entity) ([]Entity, error) {
	oe := e.(ObservationEntity)
	oe.Obs.Scalar = strings.ToUpper(oe.Obs.Scalar)
	return []Entity{oe}, nil
}
