// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reasoning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

// =============================================================================
// CONTRACT ERROR
// =============================================================================

// ContractError reports a reply that broke the two-key JSON contract.
type ContractError struct {
	Raw    string
	Reason string
}

func (e *ContractError) Error() string {
	return "reasoning reply violates contract: " + e.Reason
}

func violation(raw, format string, args ...any) error {
	return &ContractError{Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// RESULT
// =============================================================================

// Result is a parsed reasoning reply. Value holds an int, float64,
// string or bool according to the task's kind.
type Result struct {
	Kind   ValueKind
	Value  any
	Reason string
}

// Int returns Value for KindInt results.
func (r Result) Int() (int, bool) {
	v, ok := r.Value.(int)
	return v, ok
}

// Float returns Value for KindFloat results.
func (r Result) Float() (float64, bool) {
	v, ok := r.Value.(float64)
	return v, ok
}

// Text returns Value for KindString results.
func (r Result) Text() (string, bool) {
	v, ok := r.Value.(string)
	return v, ok
}

// Bool returns Value for KindBool results.
func (r Result) Bool() (bool, bool) {
	v, ok := r.Value.(bool)
	return v, ok
}

// ParseResult decodes raw as a reasoning reply whose result is of kind.
// Surrounding whitespace is allowed; anything else outside the object,
// extra, missing or repeated keys, a null reason, or a result of the
// wrong type is a *ContractError.
func ParseResult(raw string, kind ValueKind) (Result, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.UseNumber()

	fields, err := decodeObject(dec)
	if err != nil {
		return Result{}, violation(raw, "%v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Result{}, violation(raw, "trailing data after JSON object")
	}

	if err := checkKeys(fields); err != nil {
		return Result{}, violation(raw, "%v", err)
	}

	var reason string
	if isNull(fields["reason"]) || json.Unmarshal(fields["reason"], &reason) != nil {
		return Result{}, violation(raw, `"reason" is not a string`)
	}

	value, err := decodeValue(fields["result"], kind)
	if err != nil {
		return Result{}, violation(raw, `"result": %v`, err)
	}

	return Result{Kind: kind, Value: value, Reason: reason}, nil
}

// decodeObject reads one JSON object member by member so that a key
// given twice is caught instead of the last value silently winning.
func decodeObject(dec *json.Decoder) (map[string]json.RawMessage, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("not a JSON object: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}

	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("not a JSON object: %v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("not a JSON object")
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("not a JSON object: %v", err)
		}
		fields[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("not a JSON object: %v", err)
	}
	return fields, nil
}

func isNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func checkKeys(fields map[string]json.RawMessage) error {
	_, hasReason := fields["reason"]
	_, hasResult := fields["result"]
	if hasReason && hasResult && len(fields) == 2 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf(`want keys ["reason" "result"], got %q`, keys)
}

func decodeValue(data json.RawMessage, kind ValueKind) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch kind {
	case KindInt:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("want int, got %s", data)
		}
		i, err := n.Int64()
		if err != nil || i < math.MinInt32 || i > math.MaxInt32 {
			return nil, fmt.Errorf("want int, got %s", data)
		}
		return int(i), nil

	case KindFloat:
		n, ok := v.(json.Number)
		if !ok {
			return nil, fmt.Errorf("want float, got %s", data)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("want float, got %s", data)
		}
		return f, nil

	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %s", data)
		}
		return s, nil

	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %s", data)
		}
		return b, nil
	}

	return nil, fmt.Errorf("unknown value kind %q", kind)
}
