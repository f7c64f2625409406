package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

var (
	ErrUnauthenticated = fmt.Errorf("no registered session for connection")
	ErrNotFound        = fmt.Errorf("not found")
	ErrForbidden       = fmt.Errorf("forbidden")
	ErrInvalidContent  = fmt.Errorf("invalid content")
	ErrAlreadyMember   = fmt.Errorf("user is already in the room")
	ErrConflict        = fmt.Errorf("conflict")
	ErrStorageFailure  = fmt.Errorf("storage failure")

	ErrUserAlreadyExists  = fmt.Errorf("%w: username already in use", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("invalid password")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")

	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrConnectionClosed    = fmt.Errorf("connection closed")
	ErrConnectionSaturated = fmt.Errorf("connection buffer full, event dropped")
)

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// Storage wraps a persistence error as ErrStorageFailure unless it already
// carries one of the kinds above.
func Storage(err error) error {
	if err == nil || Code(err) != codes.Internal {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

// Code classifies err into the status code the gateway reports to clients.
// Unknown errors are reported as Internal so storage details never leak.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken):
		return codes.Unauthenticated
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrForbidden):
		return codes.PermissionDenied
	case errors.Is(err, ErrInvalidContent), errors.Is(err, ErrInvalidPassword):
		return codes.InvalidArgument
	case errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrConflict):
		return codes.AlreadyExists
	case errors.Is(err, ErrStorageFailure):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
