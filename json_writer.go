package rebalance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// jsonObjectWriter builds a JSON object whose members keep the order they are
// written in. Holdings, trades, projected holdings and results encode through
// it so that a ticker always comes first and a summary before its details.
//
// The zero value is an empty object. The first error sticks: later calls do
// nothing and MarshalJSON returns it.
type jsonObjectWriter struct {
	members bytes.Buffer
	err     error
}

var errNotAnObject = errors.New("embedded value is not a JSON object")

// member writes one or more encoded members, comma separated from the
// previous ones.
func (w *jsonObjectWriter) member(encoded []byte) {
	if len(encoded) == 0 {
		return
	}
	if w.members.Len() > 0 {
		w.members.WriteByte(',')
	}
	w.members.Write(encoded)
}

// Append writes key with the JSON encoding of value.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	k, _ := json.Marshal(key) // strings always encode
	v, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("encoding %s: %w", k, err)
		return w
	}
	w.member(append(append(k, ':'), v...))
	return w
}

// Optional is Append, except that zero values (false, "", nil slices...) are
// left out.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// Embed merges the members of the raw JSON object into w.
func (w *jsonObjectWriter) Embed(raw []byte) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	obj := bytes.TrimSpace(raw)
	if len(obj) < 2 || obj[0] != '{' || obj[len(obj)-1] != '}' {
		w.err = fmt.Errorf("%w: %.20q", errNotAnObject, obj)
		return w
	}
	w.member(bytes.TrimSpace(obj[1 : len(obj)-1]))
	return w
}

// EmbedFrom merges the members of v, which must encode as an object.
func (w *jsonObjectWriter) EmbedFrom(v any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	raw, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("encoding embedded %T: %w", v, err)
		return w
	}
	return w.Embed(raw)
}

// MarshalJSON returns the object written so far.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	res := make([]byte, 0, w.members.Len()+2)
	res = append(res, '{')
	res = append(res, w.members.Bytes()...)
	return append(res, '}'), nil
}
