package workflow

import "fmt"

// ErrorKind is the closed set of typed error tags produced by this package
// (spec §7).
type ErrorKind string

const (
	ErrDuplicateNode         ErrorKind = "DuplicateNode"
	ErrMissingDependency     ErrorKind = "MissingDependency"
	ErrCyclicDependency      ErrorKind = "CyclicDependency"
	ErrParsingFailed         ErrorKind = "ParsingFailed"
	ErrUnsupportedScriptType ErrorKind = "UnsupportedScriptType"
	ErrNotRootNode           ErrorKind = "NotRootNode"
	ErrInvalidPath           ErrorKind = "InvalidPath"
	ErrExecutionFailed       ErrorKind = "ExecutionFailed"
	ErrCommandFailed         ErrorKind = "CommandFailed"
	ErrProcessFailed         ErrorKind = "ProcessFailed"
	ErrTemplateFileNotFound  ErrorKind = "TemplateFileNotFound"
	ErrTemplateInvalidURL    ErrorKind = "TemplateInvalidUrl"
	ErrTemplateInvalid       ErrorKind = "TemplateInvalid"
	ErrRepositoryPathNotFound ErrorKind = "RepositoryPathNotFound"
	ErrRepositoryHTTPError   ErrorKind = "RepositoryHttpError"
	ErrRepositoryNetworkError ErrorKind = "RepositoryNetworkError"
	ErrRepositoryParseError  ErrorKind = "RepositoryParseError"
)

// Error is the typed error value returned at every package boundary. It
// never panics across an exported function; internal invariant violations
// are converted into ErrExecutionFailed instead.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError reports whether err is (or wraps) a *Error and returns it.
func AsError(err error) (*Error, bool) {
	var target *Error
	ok := asError(err, &target)
	return target, ok
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func newErr(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func errDuplicateNode(id string) *Error {
	return newErr(ErrDuplicateNode, fmt.Sprintf("duplicate job id %q", id), nil)
}

func errMissingDependency(jobID, dep string) *Error {
	return newErr(ErrMissingDependency, fmt.Sprintf("job %q needs undeclared job %q", jobID, dep), nil)
}

func errCyclicDependency(path []string) *Error {
	return newErr(ErrCyclicDependency, fmt.Sprintf("cyclic dependency: %v", path), nil)
}

func errParsingFailed(msg string, cause error) *Error {
	return newErr(ErrParsingFailed, msg, cause)
}

func errUnsupportedScriptType(kind ScriptKind) *Error {
	return newErr(ErrUnsupportedScriptType, fmt.Sprintf("no executor registered for script kind %q", kind), nil)
}

// NewUnsupportedScriptTypeError reports a script executor invoked with a
// script kind it does not handle.
func NewUnsupportedScriptTypeError(kind ScriptKind) *Error {
	return errUnsupportedScriptType(kind)
}

func errNotRootNode(id string) *Error {
	return newErr(ErrNotRootNode, fmt.Sprintf("node %q is not the synthetic root", id), nil)
}

func errInvalidPath(path string) *Error {
	return newErr(ErrInvalidPath, fmt.Sprintf("invalid lookup path %q", path), nil)
}

func errExecutionFailed(msg string, cause error) *Error {
	return newErr(ErrExecutionFailed, msg, cause)
}

func errCommandFailed(exitCode int, tail string) *Error {
	return newErr(ErrCommandFailed, fmt.Sprintf("command exited %d: %s", exitCode, tail), nil)
}

func errProcessFailed(msg string, cause error) *Error {
	return newErr(ErrProcessFailed, msg, cause)
}

// The New*Error constructors below are exported for the out-of-package
// ScriptExecutor/RepositorySource implementations (shellexec, templateexec,
// repository) to produce typed errors of the kinds spec §7 assigns them.

// NewCommandFailedError reports a shell script that ran to completion with
// a non-zero exit code, keeping the trailing output for diagnosis.
func NewCommandFailedError(exitCode int, tail string) *Error {
	return errCommandFailed(exitCode, tail)
}

// NewProcessFailedError reports a shell script whose process could not be
// spawned or managed at all (as opposed to running and exiting non-zero).
func NewProcessFailedError(msg string, cause error) *Error {
	return errProcessFailed(msg, cause)
}

// NewTemplateFileNotFoundError reports a template script referencing a
// source file its RepositorySource could not find.
func NewTemplateFileNotFoundError(path string, cause error) *Error {
	return newErr(ErrTemplateFileNotFound, fmt.Sprintf("template file not found: %s", path), cause)
}

// NewTemplateInvalidURLError reports a template reference that could not be
// resolved to a valid source location.
func NewTemplateInvalidURLError(ref string) *Error {
	return newErr(ErrTemplateInvalidURL, fmt.Sprintf("invalid template reference: %s", ref), nil)
}

// NewTemplateInvalidError reports a template source that failed to parse
// or render.
func NewTemplateInvalidError(path string, cause error) *Error {
	return newErr(ErrTemplateInvalid, fmt.Sprintf("invalid template: %s", path), cause)
}

// NewRepositoryPathNotFoundError reports a RepositorySource path with no
// matching entry.
func NewRepositoryPathNotFoundError(path string) *Error {
	return newErr(ErrRepositoryPathNotFound, fmt.Sprintf("repository path not found: %s", path), nil)
}

// NewRepositoryHTTPError reports a non-2xx response from an HTTP-backed
// RepositorySource.
func NewRepositoryHTTPError(status int, url string) *Error {
	return newErr(ErrRepositoryHTTPError, fmt.Sprintf("repository returned status %d for %s", status, url), nil)
}

// NewRepositoryNetworkError reports a transport-level failure reaching a
// RepositorySource.
func NewRepositoryNetworkError(cause error) *Error {
	return newErr(ErrRepositoryNetworkError, "repository network error", cause)
}

// NewRepositoryParseError reports a RepositorySource payload that could not
// be parsed (a malformed directory listing, for instance).
func NewRepositoryParseError(cause error) *Error {
	return newErr(ErrRepositoryParseError, "repository parse error", cause)
}
