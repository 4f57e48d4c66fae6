package config

import "fmt"

// InvalidError names a present-but-malformed manifest file and the field or
// reason that failed validation. Encountering one aborts the whole load.
type InvalidError struct {
	Service string
	File    string
	Reason  string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Service, e.File, e.Reason)
}

// SkippableError names a service directory missing a required file. The
// service is dropped from the result set and a warning is logged; the load
// continues.
type SkippableError struct {
	Service string
	Reason  string
}

func (e *SkippableError) Error() string {
	return fmt.Sprintf("%s: %s", e.Service, e.Reason)
}

// ValidationError names one field that failed validation on an otherwise
// well-formed manifest.
type ValidationError struct {
	Service string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Service, e.Field, e.Message)
}
