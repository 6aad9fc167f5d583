package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, ErrCodeOK},
		{fmt.Errorf("wrap: %w", ErrFrameTooLarge), ErrCodeFrameTooLarge},
		{ErrNoSpace, ErrCodeNoSpace},
		{errors.Join(ErrNoSpace, ErrAllocationFailure), ErrCodeAllocation},
		{fmt.Errorf("%w: %w", ErrTransportReceiveFailed, errors.New("eof")), ErrCodeTransport},
		{ErrInvalidArgument, ErrCodeInvalidArgument},
		{errors.New("other"), ErrCodeInternal},
		{NewError(ErrCodeNoSpace, "full"), ErrCodeNoSpace},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeOf(tt.err), "%v", tt.err)
	}
}

func TestStructuredErrorUnwrapsToSentinel(t *testing.T) {
	err := NewError(ErrCodeFrameTooLarge, "frame too large").WithContext("len", 17)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Equal(t, 17, err.Context["len"])
	assert.Contains(t, err.Error(), "frame too large")
}

func TestSessionStatusString(t *testing.T) {
	assert.Equal(t, "active", SessionActive.String())
	assert.Equal(t, "unknown", SessionStatus(77).String())
}
