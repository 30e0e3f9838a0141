package domain

// ErrorKind is the machine-readable reason attached to a failed Result.
type ErrorKind string

const (
	// KindValidation marks caller-fixable input or state conflicts.
	KindValidation ErrorKind = "VALIDATION_ERROR"
	// KindUnauthorized marks failed authentication or a missing identity.
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindInternal marks an unexpected collaborator failure.
	KindInternal ErrorKind = "INTERNAL_ERROR"
)

// Failure is the failed half of a Result. It satisfies error so the
// transport layer can hand it to its error handler unchanged.
type Failure struct {
	Kind    ErrorKind
	Message string
	// Cause is the collaborator error behind an INTERNAL_ERROR, if any.
	Cause error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Cause }

// Result is either a success value or a Failure, never both.
type Result[T any] struct {
	value   T
	failure *Failure
}

// Success wraps v in a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail builds a failed Result with the given kind and message.
func Fail[T any](kind ErrorKind, message string) Result[T] {
	return Result[T]{failure: &Failure{Kind: kind, Message: message}}
}

// Internal builds an INTERNAL_ERROR Result that keeps the cause and its
// message. The message is meant for logs and is not guaranteed user-safe.
func Internal[T any](cause error) Result[T] {
	msg := "internal error"
	if cause != nil {
		msg = cause.Error()
	}
	return Result[T]{failure: &Failure{Kind: KindInternal, Message: msg, Cause: cause}}
}

// OK reports whether the Result holds a success value.
func (r Result[T]) OK() bool { return r.failure == nil }

// Value returns the success value, or the zero T on failure.
func (r Result[T]) Value() T { return r.value }

// Failure returns the failure, or nil on success.
func (r Result[T]) Failure() *Failure { return r.failure }

// Unwrap returns the value and the failure as a plain error (nil on success).
func (r Result[T]) Unwrap() (T, error) {
	if r.failure != nil {
		return r.value, r.failure
	}
	return r.value, nil
}

// Messages returned with failed Results.
const (
	MsgEmailInUse         = "email already in use."
	MsgTaxIDInUse         = "tax id already in use."
	MsgRoleNotFound       = "role not found."
	MsgInvalidCredentials = "invalid credentials."
	MsgAccountNotFound    = "account not found."
	MsgPasswordTooLong    = "password exceeds 72 bytes."
)
