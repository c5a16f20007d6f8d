package memory

import (
	"encoding/json"
	"fmt"
)

// selectorDoc is the subset of the CouchDB Mango query language the
// in-memory matcher understands: top-level field equality plus the
// comparison operators below. Anything else is rejected rather than
// silently matching nothing.
type selectorDoc map[string]any

var comparisonOps = map[string]struct{}{
	"$eq":  {},
	"$ne":  {},
	"$gt":  {},
	"$gte": {},
	"$lt":  {},
	"$lte": {},
}

func parseSelector(raw []byte) (selectorDoc, error) {
	var q struct {
		Selector map[string]any `json:"selector"`
	}
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("memory: parse selector: %w", err)
	}
	if q.Selector == nil {
		return nil, fmt.Errorf("memory: selector document missing selector field")
	}
	for field, cond := range q.Selector {
		ops, ok := cond.(map[string]any)
		if !ok {
			continue // plain equality
		}
		for op := range ops {
			if _, ok := comparisonOps[op]; !ok {
				return nil, fmt.Errorf("memory: unsupported selector operator %q on field %q", op, field)
			}
		}
	}
	return q.Selector, nil
}

// matchSelector reports whether the JSON document matches every
// condition in sel. Missing fields never match.
func matchSelector(value []byte, sel selectorDoc) (bool, error) {
	var doc map[string]any
	if err := json.Unmarshal(value, &doc); err != nil {
		return false, err
	}
	for field, cond := range sel {
		got, ok := doc[field]
		if !ok {
			return false, nil
		}
		ops, isOps := cond.(map[string]any)
		if !isOps {
			if !valuesEqual(got, cond) {
				return false, nil
			}
			continue
		}
		for op, want := range ops {
			if !compare(op, got, want) {
				return false, nil
			}
		}
	}
	return true, nil
}

func compare(op string, got, want any) bool {
	switch op {
	case "$eq":
		return valuesEqual(got, want)
	case "$ne":
		return !valuesEqual(got, want)
	}

	gf, gok := asFloat(got)
	wf, wok := asFloat(want)
	if gok && wok {
		switch op {
		case "$gt":
			return gf > wf
		case "$gte":
			return gf >= wf
		case "$lt":
			return gf < wf
		case "$lte":
			return gf <= wf
		}
		return false
	}

	gs, gok := got.(string)
	ws, wok := want.(string)
	if !gok || !wok {
		return false
	}
	switch op {
	case "$gt":
		return gs > ws
	case "$gte":
		return gs >= ws
	case "$lt":
		return gs < ws
	case "$lte":
		return gs <= ws
	}
	return false
}

func valuesEqual(got, want any) bool {
	if gf, ok := asFloat(got); ok {
		if wf, ok := asFloat(want); ok {
			return gf == wf
		}
		return false
	}
	return got == want
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
