// Package fserr classifies per-entry copy failures.
package fserr

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind is the failure class of a single copy task.
type Kind int

const (
	IOError Kind = iota
	PermissionDenied
	NotFound
	InsufficientSpace
	TypeMismatch
	UnsupportedEntryType
	AlreadyExists
)

// NumKinds is the number of defined kinds, for fixed-size per-kind tables.
const NumKinds = int(AlreadyExists) + 1

var kindNames = [...]string{
	IOError:              "IOError",
	PermissionDenied:     "PermissionDenied",
	NotFound:             "NotFound",
	InsufficientSpace:    "InsufficientSpace",
	TypeMismatch:         "TypeMismatch",
	UnsupportedEntryType: "UnsupportedEntryType",
	AlreadyExists:        "AlreadyExists",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Error is a classified failure for one path.
type Error struct {
	Err   error
	Op    string
	Path  string
	Kind  Kind
	Errno syscall.Errno // 0 when the failure did not come from a syscall
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err for path and classifies it. An err that is already an *Error
// is returned as is so the innermost op and path win.
func New(op, path string, err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	var errno syscall.Errno
	errors.As(err, &errno)
	return &Error{
		Op:    op,
		Path:  path,
		Kind:  Classify(err),
		Errno: errno,
		Err:   err,
	}
}

// Mismatch reports a source/destination entry-type conflict.
func Mismatch(path, srcType, dstType string) *Error {
	return &Error{
		Op:   "collide",
		Path: path,
		Kind: TypeMismatch,
		Err:  fmt.Errorf("source is %s, destination is %s", srcType, dstType),
	}
}

// Exists reports a destination that is present while overwrite is off.
func Exists(path string) *Error {
	return &Error{
		Op:    "collide",
		Path:  path,
		Kind:  AlreadyExists,
		Errno: syscall.EEXIST,
		Err:   syscall.EEXIST,
	}
}

// Unsupported reports an entry the engine cannot recreate.
func Unsupported(path, typ string) *Error {
	return &Error{
		Op:   "dispatch",
		Path: path,
		Kind: UnsupportedEntryType,
		Err:  fmt.Errorf("unsupported entry type %s", typ),
	}
}

// Classify maps an error to a Kind by its underlying errno.
func Classify(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return IOError
	}
	switch errno {
	case syscall.EACCES, syscall.EPERM, syscall.EROFS:
		return PermissionDenied
	case syscall.ENOENT:
		return NotFound
	case syscall.ENOSPC, syscall.EDQUOT:
		return InsufficientSpace
	case syscall.EEXIST:
		return AlreadyExists
	case syscall.EISDIR, syscall.ENOTDIR, syscall.ENOTEMPTY:
		return TypeMismatch
	default:
		return IOError
	}
}
