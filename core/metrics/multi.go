package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink is called even
// when an earlier one fails; errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAssignment forwards the result to all sinks.
func (m *MultiSink) RecordAssignment(res AssignmentResult) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordAssignment(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordRollback forwards rollback events to sinks implementing RollbackRecorder.
func (m *MultiSink) RecordRollback(ev RollbackEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(RollbackRecorder); ok {
			if err := rec.RecordRollback(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordConflictScan forwards scans to sinks implementing ConflictRecorder.
func (m *MultiSink) RecordConflictScan(scan ConflictScan) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ConflictRecorder); ok {
			if err := rec.RecordConflictScan(scan); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
