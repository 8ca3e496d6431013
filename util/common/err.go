// Package common holds small helpers shared by the server and its jobs.
package common

import (
	"errors"
	"runtime/debug"

	"github.com/authgate/authgate/logger"
)

// Combine joins the non-nil errors; nil when all are nil.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}

// Recover stops a panic in the calling goroutine and logs it under name.
// Use it as `defer common.Recover("job")`.
func Recover(name string) {
	if p := recover(); p != nil {
		logger.Errorf("%s panic: %v\n%s", name, p, debug.Stack())
	}
}
