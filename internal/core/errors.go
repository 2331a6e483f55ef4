package core

import (
	"errors"
	"fmt"
)

// Exit codes for the nav CLI and daemon.
const (
	ExitOK         = 0
	ExitRuntime    = 1
	ExitUsage      = 2
	ExitConnection = 3
	ExitNotFound   = 4
	ExitAuth       = 5
	ExitCancelled  = 6
)

// ErrorKind classifies failures by how far they propagate.
type ErrorKind string

const (
	KindConnection ErrorKind = "connection"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindParam      ErrorKind = "param"
	KindItemBuild  ErrorKind = "item_build"
	KindSort       ErrorKind = "sort"
	KindPlayback   ErrorKind = "playback"
	KindCancelled  ErrorKind = "cancelled"
	KindScreen     ErrorKind = "screen"
	KindRuntime    ErrorKind = "runtime"
)

// Error carries a kind, a user-visible message and an optional cause.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError creates an Error with an underlying cause.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, KindRuntime for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRuntime
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// ReplyCode maps an error to its protocol reply code.
func ReplyCode(err error) string {
	switch KindOf(err) {
	case KindNotFound:
		return "NOT_FOUND"
	case KindParam:
		return "INVALID"
	case KindConnection:
		return "CONNECTION"
	case KindAuth:
		return "AUTH"
	case KindCancelled:
		return "CANCELLED"
	case KindPlayback:
		return "PLAYBACK"
	case KindScreen:
		return "SCREEN"
	default:
		return "ERROR"
	}
}

// ErrorForReplyCode maps protocol error codes back to errors.
func ErrorForReplyCode(code string, message string) *Error {
	switch code {
	case "NOT_FOUND":
		return &Error{Kind: KindNotFound, Msg: message}
	case "INVALID":
		return &Error{Kind: KindParam, Msg: message}
	case "CONNECTION":
		return &Error{Kind: KindConnection, Msg: message}
	case "AUTH":
		return &Error{Kind: KindAuth, Msg: message}
	case "CANCELLED":
		return &Error{Kind: KindCancelled, Msg: message}
	case "PLAYBACK":
		return &Error{Kind: KindPlayback, Msg: message}
	case "SCREEN":
		return &Error{Kind: KindScreen, Msg: message}
	default:
		return &Error{Kind: KindRuntime, Msg: message}
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindConnection:
		return ExitConnection
	case KindAuth:
		return ExitAuth
	case KindNotFound:
		return ExitNotFound
	case KindParam:
		return ExitUsage
	case KindCancelled:
		return ExitCancelled
	default:
		return ExitRuntime
	}
}
