package git

import (
	"errors"
	"fmt"
)

// Sentinel errors that can be checked with errors.Is().
// They wrap underlying go-git errors while providing a stable API for consumers.

// ErrNotWorkingCopy is returned when a path does not host a non-bare git working copy.
var ErrNotWorkingCopy = errors.New("not a git working copy")

// ErrResolveFailed is returned when a revision or the live repository state
// cannot be read (unborn or corrupt HEAD, unreadable index).
var ErrResolveFailed = errors.New("cannot resolve revision")

// ErrIndexClosed is returned when an isolated index is used after Close.
var ErrIndexClosed = errors.New("isolated index is closed")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
