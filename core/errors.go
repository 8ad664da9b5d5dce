package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return "validation failed"
		}
		return ""
	}
	return err.Err.Error()
}

// FieldMap returns the errors keyed by field; the first error reported for a field wins.
func (err ValidationError) FieldMap() map[string]string {
	fldErrs := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		if _, ok := fldErrs[fErr.Field]; !ok {
			fldErrs[fErr.Field] = fErr.Error
		}
	}
	return fldErrs
}

// UpstreamError is returned when the conference API answered with an error or could not be reached.
type UpstreamError struct {
	Status  int // 0 when no response was received
	Message string
}

func NewUpstreamError(status int, msg string) error {
	return &UpstreamError{Status: status, Message: msg}
}

func (err UpstreamError) Error() string {
	if err.Status == 0 {
		return "conference API unreachable: " + err.Message
	}
	return fmt.Sprintf("conference API error (%d): %s", err.Status, err.Message)
}

func IsUpstream(err error) bool {
	_, ok := errors.Cause(err).(*UpstreamError)
	return ok
}

// AggregateError carries the coarse per-area messages of a failed "submit all".
// The upstream does not say which entities were saved.
type AggregateError struct {
	Messages []string
}

func (err AggregateError) Error() string {
	return "submit all failed: " + strings.Join(err.Messages, "; ")
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
