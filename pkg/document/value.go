package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var ErrUnknownValueKind = errors.New("unknown value kind")

type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindDouble
	KindString
	KindTimestamp
)

var kindKeys = map[Kind]string{
	KindNull:      "nullValue",
	KindBoolean:   "booleanValue",
	KindInteger:   "integerValue",
	KindDouble:    "doubleValue",
	KindString:    "stringValue",
	KindTimestamp: "timestampValue",
}

func (k Kind) String() string {
	if key, ok := kindKeys[k]; ok {
		return key
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a single typed document field value. Timestamps are carried as
// already formatted RFC 3339 strings.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }

func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

func String(s string) Value { return Value{kind: KindString, s: s} }

func Timestamp(ts string) Value { return Value{kind: KindTimestamp, s: ts} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) BoolValue() bool { return v.b }

func (v Value) IntValue() int64 { return v.i }

func (v Value) DoubleValue() float64 { return v.f }

// StringValue returns the string of a String or Timestamp value.
func (v Value) StringValue() string { return v.s }

// Native returns the value as a plain Go value.
func (v Value) Native() any {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindInteger:
		return v.i
	case KindDouble:
		return v.f
	case KindString, KindTimestamp:
		return v.s
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	key, ok := kindKeys[v.kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownValueKind, int(v.kind))
	}
	var inner any
	switch v.kind {
	case KindNull:
		inner = nil
	case KindBoolean:
		inner = v.b
	case KindInteger:
		// int64 values travel as decimal strings in the REST encoding
		inner = strconv.FormatInt(v.i, 10)
	case KindDouble:
		inner = encodeDouble(v.f)
	case KindString, KindTimestamp:
		inner = v.s
	}
	return json.Marshal(map[string]any{key: inner})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("value must have exactly one kind, got %d", len(m))
	}
	for key, raw := range m {
		switch key {
		case "nullValue":
			*v = Null()
		case "booleanValue":
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*v = Bool(b)
		case "integerValue":
			i, err := decodeInteger(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*v = Integer(i)
		case "doubleValue":
			f, err := decodeDouble(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*v = Double(f)
		case "stringValue", "timestampValue":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if key == "stringValue" {
				*v = String(s)
			} else {
				*v = Timestamp(s)
			}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownValueKind, key)
		}
	}
	return nil
}

func encodeDouble(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

func decodeDouble(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

func decodeInteger(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(s, 10, 64)
	}
	var i int64
	err := json.Unmarshal(raw, &i)
	return i, err
}
