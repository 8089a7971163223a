package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Payload is an ordered set of named template variables. Values are scalars
// (string, number, bool, time) or nested Payloads, addressed by dotted paths
// such as "service.name".
type Payload []Field

// Field is a single named payload value.
type Field struct {
	Key   string
	Value any
}

// P builds a payload from key/value pairs, preserving argument order.
func P(pairs ...any) Payload {
	if len(pairs)%2 != 0 {
		panic("domain.P: odd number of arguments")
	}
	p := make(Payload, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("domain.P: key %v is not a string", pairs[i]))
		}
		p = append(p, Field{Key: key, Value: pairs[i+1]})
	}
	return p
}

// Lookup resolves a dotted path against the payload. The second return is
// false when any path segment is missing or a non-payload value is descended
// into.
func (p Payload) Lookup(path string) (any, bool) {
	segs := strings.Split(path, ".")
	cur := p
	for i, seg := range segs {
		val, ok := cur.get(seg)
		if !ok {
			return nil, false
		}
		if i == len(segs)-1 {
			return val, true
		}
		nested, ok := val.(Payload)
		if !ok {
			return nil, false
		}
		cur = nested
	}
	return nil, false
}

func (p Payload) get(key string) (any, bool) {
	for _, f := range p {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// FormatValue renders a payload value for template interpolation.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// MarshalJSON encodes the payload as a JSON object in field order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("payload field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. Nested objects
// become nested Payloads, numbers stay json.Number.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("payload: expected JSON object, got %v", tok)
	}
	out, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*p = out
	return nil
}

func decodeObject(dec *json.Decoder) (Payload, error) {
	var out Payload
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("payload: non-string key %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("payload field %q: %w", key, err)
		}
		out = append(out, Field{Key: key, Value: val})
	}
	// consume closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			var arr []any
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return tok, nil
	}
}
