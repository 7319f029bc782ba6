package llm

import (
	"errors"
	"fmt"
)

// Failure kinds reported in logs and metrics.
const (
	KindConfiguration  = "configuration"
	KindNetwork        = "network"
	KindUpstreamFormat = "upstream_format"
	KindInternal       = "internal"
)

// ConfigurationError means the client cannot run, e.g. the credential is missing.
// No network I/O is attempted when it is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "llm configuration: " + e.Reason
}

// NetworkError wraps transport failures, timeouts and non-2xx responses.
type NetworkError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("llm network: http status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("llm network: http status %d", e.StatusCode)
	case e.Err != nil:
		return "llm network: " + e.Err.Error()
	default:
		return "llm network: " + e.Message
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UpstreamFormatError means a 2xx response did not carry the message payload.
type UpstreamFormatError struct {
	Reason string
}

func (e *UpstreamFormatError) Error() string {
	return "llm upstream format: " + e.Reason
}

// FailureKind classifies err into one of the Kind* constants.
func FailureKind(err error) string {
	var cfgErr *ConfigurationError
	var netErr *NetworkError
	var fmtErr *UpstreamFormatError
	switch {
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &fmtErr):
		return KindUpstreamFormat
	default:
		return KindInternal
	}
}
