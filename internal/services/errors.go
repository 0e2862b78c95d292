package services

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates failures of the analysis pipeline. Callers switch
// on the kind instead of on concrete error types.
type ErrorKind string

const (
	KindSubjectNotFound   ErrorKind = "SubjectNotFound"
	KindRemoteTimeout     ErrorKind = "RemoteTimeout"
	KindRemoteUnavailable ErrorKind = "RemoteUnavailable"
	KindRemotePermanent   ErrorKind = "RemotePermanent"
	KindMalformedResponse ErrorKind = "MalformedResponse"

	// KindPersistenceDegraded never reaches a caller. It only labels logs.
	KindPersistenceDegraded ErrorKind = "PersistenceDegraded"
)

// Transient reports whether the remote client retries failures of this kind.
func (k ErrorKind) Transient() bool {
	return k == KindRemoteTimeout || k == KindRemoteUnavailable
}

// AnalysisError is the single error type surfaced by the analysis pipeline.
// Message is always one of the fixed user-safe strings; Err keeps the
// underlying cause for logs and errors.Is.
type AnalysisError struct {
	Kind       ErrorKind
	StatusCode int
	Field      string
	Attempts   int
	Message    string
	Err        error
}

func (e *AnalysisError) Error() string {
	return e.Message
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Detail is the log-only description, including the wrapped cause.
func (e *AnalysisError) Detail() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.StatusCode != 0 {
		s += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Field != "" {
		s += fmt.Sprintf(" (field %s)", e.Field)
	}
	if e.Attempts > 0 {
		s += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// KindOf returns the kind carried by err, or "" when err is not an
// AnalysisError.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func subjectNotFound(err error) *AnalysisError {
	return &AnalysisError{
		Kind:    KindSubjectNotFound,
		Message: "Company not found",
		Err:     err,
	}
}
