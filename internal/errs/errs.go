// Package errs defines the error taxonomy shared across ingestion and querying.
package errs

import "fmt"

// ConfigurationError is returned when configuration is invalid.
// It is fatal and raised before any work starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// ServiceError is returned when an external service call fails.
// Callers retry with backoff and then skip and record the item.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// ParseError is returned when a structured service response does not
// conform to the expected schema. Same recovery policy as ServiceError.
type ParseError struct {
	ChunkID string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.ChunkID == "" {
		return "parse error: " + e.Message
	}
	return fmt.Sprintf("parse error: chunk %s: %s", e.ChunkID, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StoreConnectivityError is returned when the graph store is unreachable.
// Fatal at startup; mid-run it fails the current operation only.
type StoreConnectivityError struct {
	Addr string
	Err  error
}

func (e *StoreConnectivityError) Error() string {
	return fmt.Sprintf("store unreachable at %s: %v", e.Addr, e.Err)
}

func (e *StoreConnectivityError) Unwrap() error {
	return e.Err
}

// DimensionMismatchError is returned when an embedding vector does not
// match the dimension the store was configured with. The operation fails;
// the index is never written with a mismatched vector.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: store expects %d, got %d", e.Want, e.Got)
}
