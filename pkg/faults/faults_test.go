package faults

import (
	stderrors "errors"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{InvalidArgument("mode %q", "median"), ErrInvalidArgument},
		{EmptyInput("no values"), ErrEmptyInput},
		{Shape("2x2 vs 3x3"), ErrShape},
		{UndefinedMetric("iou"), ErrUndefinedMetric},
		{NotFound("image %s", "a.jpg"), ErrNotFound},
	}

	for _, tc := range cases {
		wrapped := errors.Wrap(tc.err, "stage")
		assert.True(t, stderrors.Is(wrapped, tc.kind), "wrapped %v should match %v", wrapped, tc.kind)
		assert.Equal(t, tc.kind, KindOf(wrapped))
	}
}

func TestErrorMessage(t *testing.T) {
	err := InvalidArgument("unsupported mode %q", "median")
	assert.Equal(t, `invalid argument: unsupported mode "median"`, err.Error())
	assert.Nil(t, KindOf(stderrors.New("plain")))
}
