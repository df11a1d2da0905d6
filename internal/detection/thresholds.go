package detection

import (
	"errors"
	"fmt"
	"time"
)

// Thresholds tunes the aggregating rules. All comparisons against them are
// inclusive.
type Thresholds struct {
	DNSQueryLength int           `mapstructure:"dns_query_length" json:"dns_query_length"`
	DNSQueryVolume int           `mapstructure:"dns_query_volume" json:"dns_query_volume"`
	FailureCount   int           `mapstructure:"failure_count" json:"failure_count"`
	FailureWindow  time.Duration `mapstructure:"failure_window" json:"failure_window"`
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DNSQueryLength: 60,
		DNSQueryVolume: 25,
		FailureCount:   6,
		FailureWindow:  15 * time.Minute,
	}
}

// Validate reports every non-positive threshold.
func (t Thresholds) Validate() error {
	var errs []error
	if t.DNSQueryLength <= 0 {
		errs = append(errs, fmt.Errorf("dns_query_length must be positive, got %d", t.DNSQueryLength))
	}
	if t.DNSQueryVolume <= 0 {
		errs = append(errs, fmt.Errorf("dns_query_volume must be positive, got %d", t.DNSQueryVolume))
	}
	if t.FailureCount <= 0 {
		errs = append(errs, fmt.Errorf("failure_count must be positive, got %d", t.FailureCount))
	}
	if t.FailureWindow <= 0 {
		errs = append(errs, fmt.Errorf("failure_window must be positive, got %s", t.FailureWindow))
	}
	return errors.Join(errs...)
}
