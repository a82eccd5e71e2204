package ingest

import (
	"math"
	"strconv"
	"strings"
)

// ParseValue turns a historian cell into a number. Unparsable, NaN and
// infinite values become 0.
//
// Both locales seen in exports are accepted: "1 234,5", "1.234,5",
// "1,234.5" and "1234.5" all read as 1234.5. With a single separator kind,
// one occurrence is the decimal mark and several are thousands marks.
func ParseValue(raw string) float64 {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'', '\t':
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return 0
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		if strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case dot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
