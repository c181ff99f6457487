package cli

import "errors"

// ErrUsage matches every error caused by bad flags, config or input.
var ErrUsage = errors.New("cli usage error")

// usageError is shown to the user as-is. cause keeps the underlying
// catalog or export error reachable through errors.As.
type usageError struct {
	msg   string
	cause error
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func wrapUsageError(msg string, cause error) error {
	return usageError{msg: msg, cause: cause}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

func (e usageError) Unwrap() error {
	return e.cause
}
