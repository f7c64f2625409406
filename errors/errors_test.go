package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"unauthenticated", ErrUnauthenticated, codes.Unauthenticated},
		{"wrapped not found", fmt.Errorf("room 4: %w", ErrNotFound), codes.NotFound},
		{"forbidden", ErrForbidden, codes.PermissionDenied},
		{"invalid content", fmt.Errorf("%w: empty message", ErrInvalidContent), codes.InvalidArgument},
		{"already member", ErrAlreadyMember, codes.AlreadyExists},
		{"duplicate username", ErrUserAlreadyExists, codes.AlreadyExists},
		{"storage", fmt.Errorf("%w: disk full", ErrStorageFailure), codes.Unavailable},
		{"unknown", fmt.Errorf("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestStorage(t *testing.T) {
	req := require.New(t)

	// Given a raw persistence error
	raw := fmt.Errorf("value log truncated")

	// Then it is reported as a storage failure
	req.ErrorIs(Storage(raw), ErrStorageFailure)

	// And domain kinds pass through untouched
	notFound := fmt.Errorf("room 3: %w", ErrNotFound)
	req.Equal(notFound, Storage(notFound))
	req.NoError(Storage(nil))
}
