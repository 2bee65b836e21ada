package logpipe

import "context"

// HealthReport is the per-sink outcome of CheckHealth. A nil Err means
// healthy; sinks that don't implement sink.HealthChecker are reported
// with Checked=false rather than silently omitted.
type HealthReport struct {
	SinkName string
	Checked  bool
	Err      error
}

// CheckHealth runs HealthCheck against every sink that implements
// sink.HealthChecker, independent of that sink's circuit breaker state
// (a closed breaker doesn't mean the sink is actually healthy, only that
// it hasn't failed its last N writes).
func (l *Logger) CheckHealth(ctx context.Context) []HealthReport {
	reports := make([]HealthReport, 0, len(l.sinks.Sinks))
	for _, s := range l.sinks.Sinks {
		checker, ok := s.(interface {
			HealthCheck(ctx context.Context) error
		})
		if !ok {
			reports = append(reports, HealthReport{SinkName: s.Name(), Checked: false})
			continue
		}
		reports = append(reports, HealthReport{
			SinkName: s.Name(),
			Checked:  true,
			Err:      checker.HealthCheck(ctx),
		})
	}
	return reports
}
