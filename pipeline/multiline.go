package pipeline

import (
	"strings"
	"sync"
)

// AssetMultiLineAssembler is T4: a raw line that itself begins with
// "--multiline--XXX" opens a block; it buffers subsequent raw lines until
// a line with the same sentinel reappears, then emits the assembled body
// as a MultilineAssetIngest carrying only Source, Sentinel and Body (no
// asset id, type or timestamp). A sentinel at the end of an @ASSET@ line
// does not open a block. Any other line arriving while a block is open
// goes into the body and is not delivered as an observation.
type AssetMultiLineAssembler struct {
	mu   sync.Mutex
	open map[string]*multilineState // keyed by source
}

type multilineState struct {
	sentinel string
	body     strings.Builder
}

func NewAssetMultiLineAssembler() *AssetMultiLineAssembler {
	return &AssetMultiLineAssembler{open: make(map[string]*multilineState)}
}

func (a *AssetMultiLineAssembler) Name() string { return "AssetMultiLineAssembler" }

func (a *AssetMultiLineAssembler) Accepts(e Entity) bool {
	_, ok := e.(RawLine)
	return ok
}

const multilinePrefix = "--multiline--"

func (a *AssetMultiLineAssembler) Apply(e Entity) ([]Entity, error) {
	raw := e.(RawLine)
	a.mu.Lock()
	defer a.mu.Unlock()

	st, inBlock := a.open[raw.Source]
	trimmed := strings.TrimSpace(raw.Text)

	if strings.HasPrefix(trimmed, multilinePrefix) {
		sentinel := strings.TrimPrefix(trimmed, multilinePrefix)
		if inBlock && sentinel == st.sentinel {
			delete(a.open, raw.Source)
			return []Entity{MultilineAssetIngest{Source: raw.Source, Sentinel: sentinel, Body: st.body.String()}}, nil
		}
		a.open[raw.Source] = &multilineState{sentinel: sentinel}
		return nil, nil
	}

	if inBlock {
		st.body.WriteString(raw.Text)
		st.body.WriteString("\n")
		return nil, nil
	}

	return []Entity{raw}, nil
}
