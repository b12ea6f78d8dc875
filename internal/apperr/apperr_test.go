package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, KindIO, "write base file")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "io: write base file: disk full", err.Error())
}

func TestKindThroughFmtWrapping(t *testing.T) {
	inner := Newf(KindRender, "template %s", "t1")
	outer := fmt.Errorf("pair e1/t1: %w", inner)

	assert.True(t, Is(outer, KindRender))
	assert.False(t, Is(outer, KindMerge))
	assert.Equal(t, KindRender, KindOf(outer))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	e, ok := As(outer)
	require.True(t, ok)
	assert.Equal(t, "template t1", e.Message)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindMerge, http.StatusUnprocessableEntity},
		{KindIO, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.kind, "x").HTTPStatus())
		})
	}
}
