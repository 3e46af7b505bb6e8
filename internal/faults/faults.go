// Package faults holds the text codes shared by the public packages and the
// helpers that build and inspect go-errors values carrying them.
package faults

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to every error surfaced by this module.
const (
	CodeInvalidRange       = "INVALID_RANGE"
	CodeInvalidConfig      = "INVALID_CONFIG"
	CodeShardNotFound      = "SHARD_NOT_FOUND"
	CodeCacheUnavailable   = "CACHE_UNAVAILABLE"
	CodeCodec              = "CACHE_CODEC"
	CodeFanoutTimeout      = "FANOUT_TIMEOUT"
	CodeFanoutFailed       = "FANOUT_FAILED"
	CodeFanoutPartial      = "FANOUT_PARTIAL"
	CodeShardQueryFailed   = "SHARD_QUERY_FAILED"
	CodeWarmFailed         = "WARM_FAILED"
	CodeTaskAlreadyRunning = "TASK_ALREADY_RUNNING"
	CodeTaskIncomplete     = "TASK_INCOMPLETE"
	CodeTaskNotFound       = "TASK_NOT_FOUND"
	CodeTaskPanic          = "TASK_PANIC"
	CodeTaskCancelled      = "TASK_CANCELLED"
	CodeRunnerStopped      = "RUNNER_STOPPED"
)

// New builds a categorized error carrying code.
func New(category goerrors.Category, code, message string) *goerrors.Error {
	return goerrors.New(message, category).WithTextCode(code)
}

// Wrap wraps source with a category and code. The whole source chain stays
// reachable through Source, including every branch of a joined error. A nil
// source yields a plain New.
func Wrap(source error, category goerrors.Category, code, message string) *goerrors.Error {
	if source == nil {
		return New(category, code, message)
	}
	return &goerrors.Error{
		Category:  category,
		TextCode:  code,
		Message:   message,
		Source:    source,
		Timestamp: time.Now(),
		Severity:  goerrors.SeverityError,
	}
}

// HasCode reports whether any go-errors value in err's tree carries code.
// Joined errors are searched branch by branch.
func HasCode(err error, code string) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *goerrors.Error:
		if e.TextCode == code {
			return true
		}
		return HasCode(e.Source, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return HasCode(e.Unwrap(), code)
	}
	return false
}

// Code returns the text code of the outermost go-errors value in err's
// chain, or "" when there is none.
func Code(err error) string {
	for err != nil {
		if e, ok := err.(*goerrors.Error); ok {
			return e.TextCode
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
