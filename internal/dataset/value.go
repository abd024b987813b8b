package dataset

import (
	"strconv"
	"strings"
)

// Kind classifies a cell value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
)

// Value is a single table cell.
type Value struct {
	Kind Kind
	Num  float64
	Text string
}

func Number(v float64) Value { return Value{Kind: KindNumber, Num: v} }

func Text(s string) Value { return Value{Kind: KindText, Text: s} }

func Missing() Value { return Value{} }

func (v Value) IsMissing() bool { return v.Kind == KindMissing }

func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// String renders the value the way WriteCSV does. Numbers use the shortest
// representation that parses back to the same float64.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindText:
		return v.Text
	default:
		return ""
	}
}

// Equal reports whether two values are identical. Missing equals missing.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == other.Num
	case KindText:
		return v.Text == other.Text
	default:
		return true
	}
}

// Less orders values: missing first, then numbers ascending, then text.
func (v Value) Less(other Value) bool {
	if v.Kind != other.Kind {
		return v.Kind < other.Kind
	}
	switch v.Kind {
	case KindNumber:
		return v.Num < other.Num
	case KindText:
		return v.Text < other.Text
	default:
		return false
	}
}

var missingTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"nan":  {},
	"null": {},
	"n/a":  {},
	"none": {},
}

// ParseValue interprets a raw CSV cell.
func ParseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if _, ok := missingTokens[strings.ToLower(trimmed)]; ok {
		return Missing()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Number(f)
	}
	return Text(trimmed)
}
