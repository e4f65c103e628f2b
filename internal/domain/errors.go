package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a calculation failure. Codes are strings so they
// serialize directly into API and subprocess error payloads.
type ErrorCode string

const (
	// CodeTableNotFound means a required rate row does not exist.
	CodeTableNotFound ErrorCode = "TABLE_NOT_FOUND"
	// CodeInvalidInput means the request was rejected before any lookup.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	// CodeDataIntegrity means provisioned rate data breaks its invariants.
	CodeDataIntegrity ErrorCode = "DATA_INTEGRITY"
	// CodeDatabase means the rate table store itself failed.
	CodeDatabase ErrorCode = "DATABASE_ERROR"
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// CalculationError is the engine's single error type.
type CalculationError struct {
	Code    ErrorCode
	Message string
	// Key is set for lookup failures.
	Key *LookupKey
	Err error
}

func (e *CalculationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CalculationError) Unwrap() error { return e.Err }

// Is matches any CalculationError carrying the same code, so callers can
// write errors.Is(err, domain.ErrTableNotFound).
func (e *CalculationError) Is(target error) bool {
	var t *CalculationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Key == nil
}

var (
	ErrTableNotFound = &CalculationError{Code: CodeTableNotFound}
	ErrInvalidInput  = &CalculationError{Code: CodeInvalidInput}
	ErrDataIntegrity = &CalculationError{Code: CodeDataIntegrity}
	ErrDatabase      = &CalculationError{Code: CodeDatabase}
)

func TableNotFound(key LookupKey, wage fmt.Stringer) *CalculationError {
	k := key
	return &CalculationError{
		Code:    CodeTableNotFound,
		Message: fmt.Sprintf("withholding table not found for %s wages=%s; official tables are required and no bracket estimate is made", key, wage),
		Key:     &k,
	}
}

func InvalidInput(format string, args ...any) *CalculationError {
	return &CalculationError{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func DataIntegrity(format string, args ...any) *CalculationError {
	return &CalculationError{Code: CodeDataIntegrity, Message: fmt.Sprintf(format, args...)}
}

func StoreFailure(op string, err error) *CalculationError {
	return &CalculationError{Code: CodeDatabase, Message: op, Err: err}
}

// CodeOf extracts the error code, defaulting to CodeInternal.
func CodeOf(err error) ErrorCode {
	var ce *CalculationError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}
