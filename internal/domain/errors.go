package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of dependency failure classes. Classification
// happens once, at the boundary where the raw dependency error is received;
// the retry wrapper only ever switches on the kind.
type ErrorKind string

const (
	// KindRetryable marks transient failures: throttling, temporary
	// unavailability, too-many-requests.
	KindRetryable ErrorKind = "retryable"

	// KindFatal marks failures where the request itself is wrong:
	// validation errors, access denied. Retrying cannot help.
	KindFatal ErrorKind = "fatal"

	// KindUnknown marks everything else. Treated as retryable but logged
	// distinctly so operators can spot new failure modes.
	KindUnknown ErrorKind = "unknown"
)

// DependencyError wraps a raw error from an external dependency with its
// classification and the upstream error code, when one was available.
type DependencyError struct {
	Dependency string
	Kind       ErrorKind
	Code       string
	Err        error
}

func (e *DependencyError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Dependency, e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Dependency, e.Kind, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// RetryableDependency classifies err as a transient dependency failure.
func RetryableDependency(dependency, code string, err error) *DependencyError {
	return &DependencyError{Dependency: dependency, Kind: KindRetryable, Code: code, Err: err}
}

// FatalDependency classifies err as a permanent dependency failure.
func FatalDependency(dependency, code string, err error) *DependencyError {
	return &DependencyError{Dependency: dependency, Kind: KindFatal, Code: code, Err: err}
}

// UnknownDependency classifies err as an unrecognized dependency failure.
func UnknownDependency(dependency, code string, err error) *DependencyError {
	return &DependencyError{Dependency: dependency, Kind: KindUnknown, Code: code, Err: err}
}

// KindOf returns the classification of err. Errors that were never classified
// at a dependency boundary report KindUnknown.
func KindOf(err error) ErrorKind {
	var depErr *DependencyError
	if errors.As(err, &depErr) {
		return depErr.Kind
	}
	return KindUnknown
}

// UnavailableError reports that a dependency could not be used at all: the
// circuit breaker refused the attempt, or every retry was exhausted. Err holds
// the last observed failure for diagnostics and is nil when the breaker
// blocked the call before any attempt was made.
type UnavailableError struct {
	Dependency string
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable: circuit open", e.Dependency)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// ValidationError reports bad caller input. It never touches the circuit
// breaker and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}
