package pipeline

import (
	"logpipe/envelope"
	"logpipe/level"
)

// LevelFilter drops any event below a minimum priority threshold.
type LevelFilter struct {
	Min level.Level
}

func NewLevelFilter(min level.Level) *LevelFilter {
	return &LevelFilter{Min: min}
}

func (f *LevelFilter) Name() string { return "level" }

func (f *LevelFilter) ShouldEmit(e *envelope.Event) (*envelope.Event, bool) {
	return e, e.Level.Priority() >= f.Min.Priority()
}
