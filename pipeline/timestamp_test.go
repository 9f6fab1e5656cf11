package pipeline

import (
	"testing"
	"time"

	"github.com/mtconnect-go/agent/devtools/tassert"
)

func TestTimestampExtractorForcedLiteral(t *testing.T) {
	te := NewTimestampExtractor()
	te.Relative = true
	te.BaseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ts, dur := te.parse("!2021-01-19T10:00:00Z")
	tassert.Fatalf(t, dur == nil, "expected no duration for a forced literal without @suffix")
	want := time.Date(2021, 1, 19, 10, 0, 0, 0, time.UTC)
	tassert.Errorf(t, ts.Equal(want), "expected forced literal to parse the ISO timestamp literally, got %v", ts)
}

func TestTimestampExtractorRelativeOffset(t *testing.T) {
	te := NewTimestampExtractor()
	te.Relative = true
	te.BaseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	te.BaseOffset = 1000

	ts, _ := te.parse("2000")
	want := te.BaseTime.Add(1000 * time.Microsecond)
	tassert.Errorf(t, ts.Equal(want), "expected relative offset to translate against BaseTime/BaseOffset, got %v", ts)
}

func TestTimestampExtractorEmptyTokenUsesNow(t *testing.T) {
	te := NewTimestampExtractor()
	fixed := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	te.Now = func() time.Time { return fixed }

	ts, _ := te.parse("")
	tassert.Errorf(t, ts.Equal(fixed), "expected empty token to inject the system clock, got %v", ts)
}
