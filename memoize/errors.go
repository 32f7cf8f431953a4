package memoize

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrOperationNotFound is returned when a name refers to no operation
	// visible on a table.
	ErrOperationNotFound = errors.New("memoize: operation not found")

	// ErrAlreadyMemoized is returned when a table registers the same name at
	// the same level twice.
	ErrAlreadyMemoized = errors.New("memoize: operation already memoized")

	// ErrInvalidResultType is returned by the typed call helpers when the
	// operation result does not have the requested type.
	ErrInvalidResultType = errors.New("memoize: invalid result type")
)

func notFoundError(table, operation string) error {
	return goerrors.Wrap(ErrOperationNotFound, goerrors.CategoryNotFound,
		fmt.Sprintf("operation %q is not defined on %q", operation, table)).
		WithTextCode("MEMOIZE_OPERATION_NOT_FOUND").
		WithMetadata(map[string]any{
			"table":     table,
			"operation": operation,
		})
}

func alreadyMemoizedError(table, operation string, level Level) error {
	return goerrors.Wrap(ErrAlreadyMemoized, goerrors.CategoryConflict,
		fmt.Sprintf("%s operation %q on %q is already memoized", level, operation, table)).
		WithTextCode("MEMOIZE_DUPLICATE_REGISTRATION").
		WithMetadata(map[string]any{
			"table":     table,
			"operation": operation,
			"level":     level.String(),
		})
}

func invalidResultTypeError(operation string, want string, got any) error {
	return goerrors.Wrap(ErrInvalidResultType, goerrors.CategoryInternal,
		fmt.Sprintf("operation %q returned %T, want %s", operation, got, want)).
		WithTextCode("MEMOIZE_INVALID_RESULT_TYPE")
}
