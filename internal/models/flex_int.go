package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"gopkg.in/yaml.v3"
)

// FlexInt holds a count that may arrive as a number, a numeric string or not
// at all. Form posts send strings, JSON clients send numbers and older
// documents stored either.
type FlexInt struct {
	value   float64
	present bool
	valid   bool
}

func NewFlexInt(v int) FlexInt {
	return FlexInt{value: float64(v), present: true, valid: true}
}

// ParseFlexInt reads a form value. An empty string is treated as absent.
func ParseFlexInt(raw string) FlexInt {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FlexInt{}
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return FlexInt{present: true}
	}
	return FlexInt{value: parsed, present: true, valid: true}
}

func (f FlexInt) Present() bool {
	return f.present
}

// CountOr returns the value floored to an integer, or fallback when the value
// is absent, not numeric or negative.
func (f FlexInt) CountOr(fallback int) int {
	if !f.present || !f.valid || f.value < 0 {
		return fallback
	}
	if f.value > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(f.value))
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = FlexInt{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		*f = ParseFlexInt(raw)
		if !f.present {
			// "" in a JSON body was sent on purpose
			f.present = true
		}
		return nil
	default:
		var number float64
		if err := json.Unmarshal(trimmed, &number); err != nil {
			*f = FlexInt{present: true}
			return nil
		}
		*f = FlexInt{value: number, present: true, valid: true}
		return nil
	}
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.present || !f.valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalBSONValue accepts the numeric BSON types and strings so legacy
// documents decode without failing the whole read.
func (f *FlexInt) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*f = FlexInt{}
		return nil
	case bsontype.Int32:
		var v int32
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		*f = NewFlexInt(int(v))
		return nil
	case bsontype.Int64:
		var v int64
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		*f = FlexInt{value: float64(v), present: true, valid: true}
		return nil
	case bsontype.Double:
		var v float64
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		*f = FlexInt{value: v, present: true, valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
		return nil
	case bsontype.String:
		var v string
		if err := bson.UnmarshalValue(t, data, &v); err != nil {
			return err
		}
		*f = ParseFlexInt(v)
		return nil
	default:
		return fmt.Errorf("cannot decode %s into FlexInt", t)
	}
}

// UnmarshalYAML reads seed files, where counts are plain scalars.
func (f *FlexInt) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: count must be a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*f = FlexInt{}
		return nil
	}
	*f = ParseFlexInt(node.Value)
	return nil
}
