// Package errs carries HTTP-aware errors from handlers to the Errors middleware.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// Error is a handler failure with the status code it should be reported as.
type Error struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	FuncName string `json:"-"`
	FileName string `json:"-"`
	InnerErr bool   `json:"-"`
}

// New records the caller's location and wraps err with code.
func New(code int, err error) *Error {
	return newError(code, err, false)
}

// NewInternal is like New with a 500 code. Its message is hidden from clients.
func NewInternal(err error) *Error {
	return newError(http.StatusInternalServerError, err, true)
}

// Newf formats a message and wraps it with code.
func Newf(code int, format string, args ...any) *Error {
	return newError(code, fmt.Errorf(format, args...), false)
}

func newError(code int, err error, internal bool) *Error {
	pc, filename, line, _ := runtime.Caller(2)

	return &Error{
		Code:     code,
		Message:  err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
		InnerErr: internal,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// IsInternal reports whether the message must be obscured from clients.
func (e *Error) IsInternal() bool {
	return e.InnerErr
}

// Code returns the status carried by err, or 500 if err is not an *Error.
func Code(err error) int {
	if e, ok := errors.AsType[*Error](err); ok {
		return e.Code
	}

	return http.StatusInternalServerError
}
