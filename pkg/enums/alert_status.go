package enums

import "fmt"

// AlertStatus represents the lifecycle state of a low-stock alert.
type AlertStatus string

const (
	AlertStatusOpen         AlertStatus = "OPEN"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
)

var validAlertStatuses = []AlertStatus{
	AlertStatusOpen,
	AlertStatusAcknowledged,
	AlertStatusResolved,
}

// ActiveAlertStatuses are the states that count toward the one-live-alert-per-part rule.
var ActiveAlertStatuses = []AlertStatus{
	AlertStatusOpen,
	AlertStatusAcknowledged,
}

// String implements fmt.Stringer.
func (s AlertStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AlertStatus.
func (s AlertStatus) IsValid() bool {
	for _, candidate := range validAlertStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the alert is still OPEN or ACKNOWLEDGED.
func (s AlertStatus) IsActive() bool {
	return s == AlertStatusOpen || s == AlertStatusAcknowledged
}

// ParseAlertStatus converts raw input into an AlertStatus.
func ParseAlertStatus(value string) (AlertStatus, error) {
	for _, candidate := range validAlertStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert status %q", value)
}
