package config

import (
	"fmt"
	"time"
)

// ConflictScanConfig schedules background conflict scans while serving.
type ConflictScanConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"interval_seconds"`
}

// Interval returns the scan period, 60 seconds when unset.
func (c ConflictScanConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Validate rejects negative intervals.
func (c ConflictScanConfig) Validate() error {
	if c.IntervalSeconds < 0 {
		return fmt.Errorf("interval_seconds must not be negative")
	}
	return nil
}
