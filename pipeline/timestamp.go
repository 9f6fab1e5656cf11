package pipeline

import (
	"strconv"
	"strings"
	"time"
)

// TimestampExtractor is T2: consumes the first token as a timestamp.
// Accepts ISO-8601 UTC (with or without fractional seconds), a leading
// "!" forcing the remainder to be parsed literally instead of falling
// back to relative-offset handling, a relative microsecond offset when
// the source is configured for relative timestamps, or an empty token
// (system clock injected). Grounded on spec.md §4.5 T2/§6 and
// original_source's adapter_pipeline relative-time handling.
type TimestampExtractor struct {
	// Relative sources report microseconds-since-process-start instead
	// of wall-clock timestamps; BaseTime/BaseOffset translate them.
	Relative  bool
	BaseTime  time.Time
	BaseOffset int64 // microseconds reported at BaseTime
	Now       func() time.Time
}

func NewTimestampExtractor() *TimestampExtractor {
	return &TimestampExtractor{Now: time.Now}
}

func (t *TimestampExtractor) Name() string { return "TimestampExtractor" }

func (t *TimestampExtractor) Accepts(e Entity) bool {
	_, ok := e.(TokenList)
	return ok
}

func (t *TimestampExtractor) Apply(e Entity) ([]Entity, error) {
	tl := e.(TokenList)
	if len(tl.Tokens) == 0 {
		return []Entity{Timestamped{Source: tl.Source, Timestamp: t.now()}}, nil
	}

	head := tl.Tokens[0]
	rest := tl.Tokens[1:]
	ts, dur := t.parse(head)
	return []Entity{Timestamped{Source: tl.Source, Tokens: rest, Timestamp: ts, Duration: dur}}, nil
}

func (t *TimestampExtractor) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *TimestampExtractor) parse(tok string) (time.Time, *time.Duration) {
	if tok == "" {
		return t.now(), nil
	}
	forced := strings.HasPrefix(tok, "!")
	if forced {
		tok = tok[1:]
	}
	if !forced && t.Relative {
		if micros, err := strconv.ParseInt(tok, 10, 64); err == nil {
			delta := time.Duration(micros-t.BaseOffset) * time.Microsecond
			return t.BaseTime.Add(delta), nil
		}
	}

	var durPart string
	main := tok
	if idx := indexByte(tok, '@'); idx >= 0 {
		main, durPart = tok[:idx], tok[idx+1:]
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999Z",
		"2006-01-02T15:04:05Z",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, main); err == nil {
			var dur *time.Duration
			if durPart != "" {
				if secs, err := strconv.ParseFloat(durPart, 64); err == nil {
					d := time.Duration(secs * float64(time.Second))
					dur = &d
				}
			}
			return ts.UTC(), dur
		}
	}
	return t.now(), nil
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
