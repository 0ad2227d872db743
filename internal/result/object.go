package result

import (
	"bytes"
	"encoding/json"
	"io"
)

// member is one key of a JSON object, kept in document order.
type member struct {
	key   string
	value json.RawMessage
}

type object []member

// decodeObject parses data as a single JSON object and keeps its keys in the
// order they appear. A repeated key keeps its first position and last value.
func decodeObject(data []byte) (object, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, false
	}

	var obj object
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, false
		}
		if i, seen := index[key]; seen {
			obj[i].value = v
			continue
		}
		index[key] = len(obj)
		obj = append(obj, member{key: key, value: v})
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return obj, true
}

// get returns the value for key. A key whose value is JSON null counts as
// absent.
func (o object) get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.key == key {
			if isNull(m.value) {
				return nil, false
			}
			return m.value, true
		}
	}
	return nil, false
}

// isTrue reports whether key holds the JSON literal true.
func (o object) isTrue(key string) bool {
	raw, ok := o.get(key)
	if !ok {
		return false
	}
	var b bool
	return json.Unmarshal(raw, &b) == nil && b
}

// getString returns key's value when it is a JSON string.
func (o object) getString(key string) (string, bool) {
	raw, ok := o.get(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// text renders a JSON value for display: strings raw, everything else as
// compact JSON.
func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
