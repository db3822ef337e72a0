package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind tags the type held by an AnswerValue.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueList
	ValueNumber
	ValueBool
)

// AnswerValue is the type-tagged value of an answer: a string, a list of
// strings, a number or a boolean. The zero value holds nothing.
type AnswerValue struct {
	kind ValueKind
	str  string
	list []string
	num  float64
	b    bool
}

// StringValue returns a string answer value.
func StringValue(s string) AnswerValue {
	return AnswerValue{kind: ValueString, str: s}
}

// ListValue returns a string list answer value. The slice is copied.
func ListValue(items []string) AnswerValue {
	return AnswerValue{kind: ValueList, list: append([]string{}, items...)}
}

// NumberValue returns a numeric answer value.
func NumberValue(n float64) AnswerValue {
	return AnswerValue{kind: ValueNumber, num: n}
}

// BoolValue returns a boolean answer value.
func BoolValue(b bool) AnswerValue {
	return AnswerValue{kind: ValueBool, b: b}
}

// Kind returns the kind of value held.
func (v AnswerValue) Kind() ValueKind { return v.kind }

// IsZero reports whether the value holds nothing.
func (v AnswerValue) IsZero() bool { return v.kind == ValueNone }

// Text returns the string held, if any.
func (v AnswerValue) Text() (string, bool) {
	return v.str, v.kind == ValueString
}

// List returns a copy of the list held, if any.
func (v AnswerValue) List() ([]string, bool) {
	if v.kind != ValueList {
		return nil, false
	}
	return append([]string{}, v.list...), true
}

// Number returns the number held, if any.
func (v AnswerValue) Number() (float64, bool) {
	return v.num, v.kind == ValueNumber
}

// Bool returns the boolean held, if any.
func (v AnswerValue) Bool() (bool, bool) {
	return v.b, v.kind == ValueBool
}

// Equal reports whether both values hold the same kind and content.
func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueString:
		return v.str == o.str
	case ValueNumber:
		return v.num == o.num
	case ValueBool:
		return v.b == o.b
	case ValueList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("answer list must hold strings: %w", err)
		}
		*v = ListValue(items)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("unsupported answer value: %s", string(data))
		}
		*v = NumberValue(n)
	}
	return nil
}

// Answer is the payload of a recorded answer.
type Answer struct {
	Value AnswerValue `json:"value"`
}
