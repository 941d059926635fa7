package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a structured failure carrying a Code, a message, optional
// conflicting paths and key/value context. It wraps an optional cause.
type Error struct {
	Code    Code
	Message string
	Paths   []string
	Context map[string]interface{}
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Paths) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Paths, ", "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same Code, so sentinel-style checks work:
//
//	errors.Is(err, &errors.Error{Code: errors.CodeRemoteMissing})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message. It returns nil if err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// WrapWithContext wraps err and attaches context values. It returns nil if err is nil.
func WrapWithContext(err error, code Code, message string, ctx map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err, Context: ctx}
}

// WithPaths returns a copy of e with a sorted, de-duplicated path list.
func (e *Error) WithPaths(paths []string) *Error {
	cp := *e
	cp.Paths = normalizePaths(paths)
	return &cp
}

// WithContext returns a copy of e with an additional context value.
func (e *Error) WithContext(key string, value interface{}) *Error {
	cp := *e
	cp.Context = make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

// CodeOf extracts the Code of the first *Error in err's chain.
// It returns CodeInternal for a non-nil error without one, and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// PathsOf returns the conflicting paths of the first *Error in err's chain.
func PathsOf(err error) []string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Paths
	}
	return nil
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	return stderrors.Is(err, &Error{Code: code})
}

func normalizePaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
