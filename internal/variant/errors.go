package variant

import "fmt"

// ConfigurationError is returned when an operation is given no valid input
// or an invalid combination of options.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// EmptyProfileError is returned when a mean is requested over zero data points.
type EmptyProfileError struct {
	Statistic string
}

func (e *EmptyProfileError) Error() string {
	return fmt.Sprintf("%s is undefined: no data points", e.Statistic)
}

// RecordError describes a malformed persisted record.
type RecordError struct {
	Message string
}

func (e *RecordError) Error() string {
	return "invalid record: " + e.Message
}
