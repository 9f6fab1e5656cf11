package pipeline

import (
	"strconv"
	"strings"

	"github.com/mtconnect-go/agent/observation"
)

// ParseDataSetToken parses one SHDR data-set/table field into its delta
// set plus an optional reset tag. Grounded on
// original_source/src/mtconnect/entity/data_set.cpp's update grammar
// (space-separated key=value pairs, empty value removes the key, a
// braced value nests a TABLE row, and a leading "RESET|" marks a
// wholesale replacement) — reimplemented here as a hand-written scanner
// rather than porting the boost::spirit grammar, which has no idiomatic
// Go analogue.
func ParseDataSetToken(tok string) (set observation.DataSet, reset string) {
	body := tok
	if strings.HasPrefix(tok, "RESET|") {
		reset = "RESET"
		body = strings.TrimPrefix(tok, "RESET|")
	}
	return parseEntries(body), reset
}

func parseEntries(s string) observation.DataSet {
	out := observation.DataSet{}
	for _, field := range splitRespectingQuotesAndBraces(s) {
		if field == "" {
			continue
		}
		key, value, hasEq := strings.Cut(field, "=")
		if !hasEq {
			continue
		}
		switch {
		case value == "":
			out[key] = observation.DataSetEntry{Removed: true}
		case strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}"):
			nested := parseEntries(unescapeTerminator(value[1:len(value)-1], '}'))
			out[key] = observation.DataSetEntry{Value: nested}
		case len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0]:
			out[key] = observation.DataSetEntry{Value: unescapeTerminator(value[1:len(value)-1], value[0])}
		default:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				out[key] = observation.DataSetEntry{Value: f}
			} else {
				out[key] = observation.DataSetEntry{Value: value}
			}
		}
	}
	return out
}

// unescapeTerminator drops the backslash from a "\<term>" escape, leaving
// every other byte (including an unrelated backslash) untouched, per
// original_source/src/mtconnect/entity/data_set.cpp's m_quoted/m_braced
// rules: `lit('\\') >> char_(_a)` is the only escape the grammar
// recognizes.
func unescapeTerminator(s string, term byte) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == term {
			b.WriteByte(term)
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// splitRespectingQuotesAndBraces splits s on whitespace, treating a
// "..."/'...'/{...} span as a single atomic field even if it contains
// spaces, and honoring a backslash escape of the span's own terminator
// (spec.md §6; grounded on data_set.cpp's m_quoted/m_braced/
// m_quotedDataSet rules). Braces nest by depth so a table value's
// nested entries can themselves contain braces; a quote span ends at
// its first unescaped matching quote and does not nest.
func splitRespectingQuotesAndBraces(s string) []string {
	var fields []string
	var cur strings.Builder
	depth := 0
	var quote byte // 0 when not inside a quoted span

	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(s) && s[i+1] == quote {
				i++
				cur.WriteByte(s[i])
				continue
			}
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		case c == '{':
			depth++
			cur.WriteByte(c)
		case c == '}':
			if depth > 0 {
				depth--
			}
			cur.WriteByte(c)
		case (c == ' ' || c == '\t') && depth == 0:
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return fields
}
