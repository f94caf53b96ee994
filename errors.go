package main

import "errors"

// errorKind classifies runtime errors per spec §7. Kept as a simple enum
// rather than a hierarchy of error types: callers that need to
// distinguish kinds use kindOf, which finds the coreError with
// errors.As; the sentinel values below are causes a few kinds wrap, and
// errors.Is still sees them through the same %w-wrapping idiom the
// teacher and FocusStreamer both use.
type errorKind int

const (
	kindTransportLost errorKind = iota
	kindExtensionMissing
	kindSelectionConflict
	kindResourceVanished
	kindBackendInitFailure
	kindPluginLoadFailure
	kindPluginRequirementsUnmet
	kindMalformedProperty
)

var (
	errTransportLost     = errors.New("display connection lost")
	errExtensionMissing  = errors.New("required extension missing or too old")
	errSelectionConflict = errors.New("another compositing manager is running")
	errResourceVanished  = errors.New("resource vanished before request completed")
	errBackendInitFailed = errors.New("rendering backend failed to initialize")
)

// coreError pairs a classified kind with an underlying cause, so handlers
// can both log a human string and programmatically branch on kind.
type coreError struct {
	kind errorKind
	err  error
}

func (e *coreError) Error() string { return e.err.Error() }
func (e *coreError) Unwrap() error { return e.err }

func wrapError(kind errorKind, err error) error {
	if err == nil {
		return nil
	}
	return &coreError{kind: kind, err: err}
}

func kindOf(err error) (errorKind, bool) {
	var ce *coreError
	if errors.As(err, &ce) {
		return ce.kind, true
	}
	return 0, false
}
