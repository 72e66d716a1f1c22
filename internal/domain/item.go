package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/guregu/null/v5"
)

// DateLayout is the upstream calendar date format.
const DateLayout = "2006-01-02"

// Item is a single upstream JSON object. Accessors never fail on a missing
// or null field; they return an invalid null value instead.
type Item struct {
	fields map[string]json.RawMessage
	raw    json.RawMessage
}

var jsonNull = []byte("null")

func isNull(b json.RawMessage) bool {
	return len(b) == 0 || bytes.Equal(bytes.TrimSpace(b), jsonNull)
}

// DecodeObject decodes a payload holding one JSON object.
func DecodeObject(payload json.RawMessage) (Item, error) {
	if isNull(payload) {
		return Item{fields: map[string]json.RawMessage{}, raw: json.RawMessage(`{}`)}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Item{}, fmt.Errorf("%w: expected object: %v", ErrMalformed, err)
	}
	return Item{fields: fields, raw: payload}, nil
}

// DecodeList decodes a payload holding a JSON array of objects.
// A null payload is an empty list.
func DecodeList(payload json.RawMessage) ([]Item, error) {
	if isNull(payload) {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(payload, &elems); err != nil {
		return nil, fmt.Errorf("%w: expected list: %v", ErrMalformed, err)
	}
	items := make([]Item, 0, len(elems))
	for i, e := range elems {
		it, err := DecodeObject(e)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Raw returns the item exactly as the upstream sent it.
func (it Item) Raw() json.RawMessage { return it.raw }

// Float reads a number, or a numeric string.
func (it Item) Float(key string) null.Float {
	b, ok := it.fields[key]
	if !ok || isNull(b) {
		return null.Float{}
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return null.FloatFrom(f)
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}

// Int reads an integral number; fractional values are truncated.
func (it Item) Int(key string) null.Int {
	f := it.Float(key)
	if !f.Valid {
		return null.Int{}
	}
	return null.IntFrom(int64(f.Float64))
}

// String reads a string truncated to max characters. Numbers and booleans
// are kept as their JSON text. max <= 0 disables truncation.
func (it Item) String(key string, max int) null.String {
	b, ok := it.fields[key]
	if !ok || isNull(b) {
		return null.String{}
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		trimmed := bytes.TrimSpace(b)
		if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' {
			return null.String{}
		}
		s = string(trimmed)
	}
	return null.StringFrom(Truncate(s, max))
}

// StringOr is String with a fallback for missing, null or empty values.
// An empty fallback keeps the column NULL.
func (it Item) StringOr(key string, max int, fallback string) null.String {
	s := it.String(key, max)
	if s.Valid && s.String != "" {
		return s
	}
	if fallback == "" {
		return null.String{}
	}
	return null.StringFrom(Truncate(fallback, max))
}

// Date parses a YYYY-MM-DD field. Timestamps that start with a date
// ("2025-01-30 13:30:00") are cut to the date part. Missing, null or empty
// fields are NULL; anything else that does not parse is an error.
func (it Item) Date(key string) (null.Time, error) {
	s := it.String(key, 0)
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return null.Time{}, nil
	}
	v := strings.TrimSpace(s.String)
	if len(v) > len(DateLayout) && (v[len(DateLayout)] == ' ' || v[len(DateLayout)] == 'T') {
		v = v[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return null.Time{}, fmt.Errorf("%w: field %q: %v", ErrMalformed, key, err)
	}
	return null.TimeFrom(t), nil
}

// Truncate cuts s to at most max characters. max <= 0 returns s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
