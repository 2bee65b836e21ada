package pipeline

import (
	"strings"

	"logpipe/envelope"
)

const maskedValue = "***"

// walkBudget tracks the two global guardrails while a redactor walks an
// event's Data tree. Once either limit is exceeded, Exceeded reports true
// and the caller must abandon the walk and fall back to the pre-redaction
// snapshot.
type walkBudget struct {
	maxDepth       int
	maxKeysScanned int
	keysScanned    int
}

func newWalkBudget(g Guardrails) *walkBudget {
	return &walkBudget{maxDepth: g.MaxDepth, maxKeysScanned: g.MaxKeysScanned}
}

func (b *walkBudget) enter(depth int) bool {
	if b.maxDepth > 0 && depth > b.maxDepth {
		return false
	}
	return true
}

func (b *walkBudget) scanKey() bool {
	b.keysScanned++
	if b.maxKeysScanned > 0 && b.keysScanned > b.maxKeysScanned {
		return false
	}
	return true
}

// walkMaskByPath walks m applying fn to every leaf whose dotted path
// matches match(path). Returns false if a guardrail was exceeded
// mid-walk, in which case the caller must discard the (partially
// mutated) result.
func walkMaskByPath(m envelope.Map, b *walkBudget, depth int, prefix string, match func(path string) bool) bool {
	if !b.enter(depth) {
		return false
	}
	for k, v := range m {
		if !b.scanKey() {
			return false
		}
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch vv := v.(type) {
		case envelope.Map:
			if !walkMaskByPath(vv, b, depth+1, path, match) {
				return false
			}
		case map[string]envelope.Value:
			if !walkMaskByPath(envelope.Map(vv), b, depth+1, path, match) {
				return false
			}
		case []envelope.Value:
			for i, item := range vv {
				if nested, ok := item.(envelope.Map); ok {
					if !walkMaskByPath(nested, b, depth+1, path, match) {
						return false
					}
				} else if match(path) {
					vv[i] = maskedValue
				}
			}
		default:
			if match(path) {
				m[k] = maskedValue
			}
		}
	}
	return true
}

// walkBlockKeys removes any subtree whose key (at any depth) is in
// blocked. Returns false on guardrail overrun.
func walkBlockKeys(m envelope.Map, b *walkBudget, depth int, blocked map[string]bool) bool {
	if !b.enter(depth) {
		return false
	}
	for k, v := range m {
		if !b.scanKey() {
			return false
		}
		if blocked[strings.ToLower(k)] {
			delete(m, k)
			continue
		}
		switch vv := v.(type) {
		case envelope.Map:
			if !walkBlockKeys(vv, b, depth+1, blocked) {
				return false
			}
		case map[string]envelope.Value:
			if !walkBlockKeys(envelope.Map(vv), b, depth+1, blocked) {
				return false
			}
		}
	}
	return true
}

// walkStrings applies fn to every string leaf in m, returning false on
// guardrail overrun.
func walkStrings(m envelope.Map, b *walkBudget, depth int, fn func(s string) string) bool {
	if !b.enter(depth) {
		return false
	}
	for k, v := range m {
		if !b.scanKey() {
			return false
		}
		switch vv := v.(type) {
		case envelope.Map:
			if !walkStrings(vv, b, depth+1, fn) {
				return false
			}
		case map[string]envelope.Value:
			if !walkStrings(envelope.Map(vv), b, depth+1, fn) {
				return false
			}
		case []envelope.Value:
			for i, item := range vv {
				if nested, ok := item.(envelope.Map); ok {
					if !walkStrings(nested, b, depth+1, fn) {
						return false
					}
				} else if s, ok := item.(string); ok {
					vv[i] = fn(s)
				}
			}
		case string:
			m[k] = fn(vv)
		}
	}
	return true
}
