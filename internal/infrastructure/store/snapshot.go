package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Snapshot is the full content of one document at read time.
type Snapshot struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Exists     bool            `json:"exists"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// DataTo decodes the document into v.
func (s Snapshot) DataTo(v any) error {
	if !s.Exists {
		return ErrNotFound
	}
	return json.Unmarshal(s.Data, v)
}

// fields is a document split into its top-level members.
type fields map[string]json.RawMessage

func encodeFields(data any) (fields, error) {
	var raw []byte
	switch v := data.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document: %w", err)
		}
		raw = b
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrNotObject
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if f == nil {
		f = fields{}
	}
	return f, nil
}

func (f fields) merge(patch fields) fields {
	out := make(fields, len(f)+len(patch))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func (f fields) raw() json.RawMessage {
	b, _ := json.Marshal(f)
	return b
}

// matches reports whether field equals value. String fields compare by
// their decoded text, other JSON values by their literal encoding.
func (f fields) matches(field, value string) bool {
	raw, ok := f[field]
	if !ok {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == value
	}
	return string(bytes.TrimSpace(raw)) == value
}

// compareValues orders JSON values: numbers numerically, everything else by
// text. Missing values sort before present ones.
func compareValues(a, b json.RawMessage) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	af, aerr := strconv.ParseFloat(string(bytes.TrimSpace(a)), 64)
	bf, berr := strconv.ParseFloat(string(bytes.TrimSpace(b)), 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	var as, bs string
	if json.Unmarshal(a, &as) != nil {
		as = string(a)
	}
	if json.Unmarshal(b, &bs) != nil {
		bs = string(b)
	}
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

// applyQuery filters and orders snapshots in memory for backends without a
// native equivalent.
func applyQuery(snaps []Snapshot, q Query) ([]Snapshot, error) {
	type row struct {
		snap Snapshot
		doc  fields
	}
	rows := make([]row, 0, len(snaps))
	for _, s := range snaps {
		doc, err := encodeFields(s.Data)
		if err != nil {
			return nil, err
		}
		if q.Field != "" && !doc.matches(q.Field, q.Value) {
			continue
		}
		rows = append(rows, row{snap: s, doc: doc})
	}

	if q.OrderBy != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			c := compareValues(rows[i].doc[q.OrderBy], rows[j].doc[q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}

	out := make([]Snapshot, len(rows))
	for i, r := range rows {
		out[i] = r.snap
	}
	return out, nil
}
