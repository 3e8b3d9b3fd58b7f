// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// Package prodoserr contains helpers for creating and testing for
// certain categories of error that the core ProDOS engine can raise,
// per the error-kind taxonomy: format errors, invariant violations,
// not-found/ambiguous paths, type mismatches, and capacity-exceeded
// errors. Warnings are not modeled here — they are logged, not
// returned (see the prodos package's use of logrus).
package prodoserr

import (
	"errors"
	"fmt"
)

// New is errors.New, so this package can be imported instead.
func New(text string) error {
	return errors.New(text)
}

// --------------------- Format error

// formatError signals a malformed on-disk structure: a bad .2mg
// header, an image size that isn't a multiple of 512, a volume
// header mismatch, or a directory key block missing its header.
type formatError string

// FormatErrorI is the tag interface used to mark FormatError errors.
type FormatErrorI interface {
	IsFormatError()
}

var _ FormatErrorI = formatError("test")

func (e formatError) Error() string { return string(e) }
func (e formatError) IsFormatError() {}

// FormatErrorf is fmt.Errorf for FormatError errors.
func FormatErrorf(format string, a ...interface{}) error {
	return formatError(fmt.Sprintf(format, a...))
}

// IsFormatError returns true if a given error is a FormatError error.
func IsFormatError(err error) bool {
	_, ok := err.(FormatErrorI)
	return ok
}

// --------------------- Invariant violation

// invariantViolation signals a caller trying to do something the
// on-disk invariants forbid: freeing an already-free block, removing
// a non-empty directory, or moving or removing the root directory.
// Allocating from a full volume is a CapacityExceeded error instead.
type invariantViolation string

// InvariantViolationI is the tag interface used to mark
// InvariantViolation errors.
type InvariantViolationI interface {
	IsInvariantViolation()
}

var _ InvariantViolationI = invariantViolation("test")

func (e invariantViolation) Error() string          { return string(e) }
func (e invariantViolation) IsInvariantViolation() {}

// InvariantViolationf is fmt.Errorf for InvariantViolation errors.
func InvariantViolationf(format string, a ...interface{}) error {
	return invariantViolation(fmt.Sprintf(format, a...))
}

// IsInvariantViolation returns true if a given error is an
// InvariantViolation error.
func IsInvariantViolation(err error) bool {
	_, ok := err.(InvariantViolationI)
	return ok
}

// --------------------- Not found / ambiguous

// notFound signals that a glob or path lookup matched zero entries.
type notFound string

// NotFoundI is the tag interface used to mark NotFound errors.
type NotFoundI interface {
	IsNotFound()
}

var _ NotFoundI = notFound("test")

func (e notFound) Error() string { return string(e) }
func (e notFound) IsNotFound()     {}

// NotFoundf is fmt.Errorf for NotFound errors.
func NotFoundf(format string, a ...interface{}) error {
	return notFound(fmt.Sprintf(format, a...))
}

// IsNotFound returns true if a given error is a NotFound error.
func IsNotFound(err error) bool {
	_, ok := err.(NotFoundI)
	return ok
}

// ambiguous signals that a single-result lookup matched more than
// one entry.
type ambiguous string

// AmbiguousI is the tag interface used to mark Ambiguous errors.
type AmbiguousI interface {
	IsAmbiguous()
}

var _ AmbiguousI = ambiguous("test")

func (e ambiguous) Error() string { return string(e) }
func (e ambiguous) IsAmbiguous()   {}

// Ambiguousf is fmt.Errorf for Ambiguous errors.
func Ambiguousf(format string, a ...interface{}) error {
	return ambiguous(fmt.Sprintf(format, a...))
}

// IsAmbiguous returns true if a given error is an Ambiguous error.
func IsAmbiguous(err error) bool {
	_, ok := err.(AmbiguousI)
	return ok
}

// --------------------- Type mismatch

// typeMismatch signals a file operation used on a directory entry,
// or vice versa.
type typeMismatch string

// TypeMismatchI is the tag interface used to mark TypeMismatch errors.
type TypeMismatchI interface {
	IsTypeMismatch()
}

var _ TypeMismatchI = typeMismatch("test")

func (e typeMismatch) Error() string   { return string(e) }
func (e typeMismatch) IsTypeMismatch() {}

// TypeMismatchf is fmt.Errorf for TypeMismatch errors.
func TypeMismatchf(format string, a ...interface{}) error {
	return typeMismatch(fmt.Sprintf(format, a...))
}

// IsTypeMismatch returns true if a given error is a TypeMismatch error.
func IsTypeMismatch(err error) bool {
	_, ok := err.(TypeMismatchI)
	return ok
}

// --------------------- Capacity exceeded

// capacityExceeded signals a name longer than 15 characters, a full
// volume, or (as a non-fatal variant handled by the caller) a loader
// longer than 1024 bytes.
type capacityExceeded string

// CapacityExceededI is the tag interface used to mark
// CapacityExceeded errors.
type CapacityExceededI interface {
	IsCapacityExceeded()
}

var _ CapacityExceededI = capacityExceeded("test")

func (e capacityExceeded) Error() string        { return string(e) }
func (e capacityExceeded) IsCapacityExceeded() {}

// CapacityExceededf is fmt.Errorf for CapacityExceeded errors.
func CapacityExceededf(format string, a ...interface{}) error {
	return capacityExceeded(fmt.Sprintf(format, a...))
}

// IsCapacityExceeded returns true if a given error is a
// CapacityExceeded error.
func IsCapacityExceeded(err error) bool {
	_, ok := err.(CapacityExceededI)
	return ok
}

// --------------------- File exists

// fileExists is an error returned when a problem is caused by a file
// or directory with the given name already existing.
type fileExists string

// FileExistsI is the tag interface used to mark FileExists errors.
type FileExistsI interface {
	IsFileExists()
}

var _ FileExistsI = fileExists("test")

func (e fileExists) Error() string { return string(e) }
func (e fileExists) IsFileExists() {}

// FileExistsf is fmt.Errorf for FileExists errors.
func FileExistsf(format string, a ...interface{}) error {
	return fileExists(fmt.Sprintf(format, a...))
}

// IsFileExists returns true if a given error is a FileExists error.
func IsFileExists(err error) bool {
	_, ok := err.(FileExistsI)
	return ok
}
