package pipeline

import (
	"logpipe/envelope"
)

// SizeGuardProcessor drops oversized Data trees down to a single marker
// field rather than let an outsized event reach serialization. A
// free-form processor, run after redaction.
type SizeGuardProcessor struct {
	MaxKeys int
}

func NewSizeGuardProcessor(maxKeys int) *SizeGuardProcessor {
	if maxKeys <= 0 {
		maxKeys = 2000
	}
	return &SizeGuardProcessor{MaxKeys: maxKeys}
}

func (p *SizeGuardProcessor) Name() string { return "size-guard" }

func (p *SizeGuardProcessor) Process(e *envelope.Event) *envelope.Event {
	if countKeys(e.Data, 0) <= p.MaxKeys {
		return e
	}
	working := e.Clone()
	working.Data = envelope.Map{"_oversized": true, "_original_key_count": countKeys(e.Data, 0)}
	return working
}

func countKeys(m envelope.Map, depth int) int {
	if depth > 32 {
		return 0
	}
	n := 0
	for _, v := range m {
		n++
		switch vv := v.(type) {
		case envelope.Map:
			n += countKeys(vv, depth+1)
		case map[string]envelope.Value:
			n += countKeys(envelope.Map(vv), depth+1)
		}
	}
	return n
}
