package errors

import stderrors "errors"

// As is errors.As, re-exported so callers importing this package under the
// name "errors" keep access to it.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is, re-exported for the same reason as As.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
