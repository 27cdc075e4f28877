package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeConfig, "ignored"))
	assert.Nil(t, Annotate(nil, "ignored"))
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"plain error", stderrors.New("boom"), ErrorTypeInternal},
		{"typed", New(ErrorTypeEnvironment, "no driver"), ErrorTypeEnvironment},
		{"wrapped typed", Wrap(New(ErrorTypeConversion, "bad int"), ErrorTypeData, "batch 3"), ErrorTypeConversion},
		{"fmt wrapped", fmt.Errorf("outer: %w", New(ErrorTypeQuery, "syntax")), ErrorTypeQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestIsTypeWalksChain(t *testing.T) {
	err := Wrap(New(ErrorTypeConnection, "refused"), ErrorTypeData, "dataset orders")

	assert.True(t, IsType(err, ErrorTypeData))
	assert.True(t, IsType(err, ErrorTypeConnection))
	assert.False(t, IsType(err, ErrorTypeConfig))
	assert.False(t, IsType(stderrors.New("x"), ErrorTypeConfig))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeConfig, "missing path")
	outer := Wrap(inner, ErrorTypeConfig, "dataset")

	require.NotEmpty(t, inner.Stack)
	assert.Equal(t, inner.Stack, outer.Stack)
}

func TestWithDetail(t *testing.T) {
	err := Newf(ErrorTypeConversion, "cannot convert %q", "abc").
		WithDetail("field", "id").
		WithDetail("batch", 2)

	assert.Equal(t, `conversion: cannot convert "abc"`, err.Error())
	assert.Equal(t, "id", err.Details["field"])
	assert.Equal(t, 2, err.Details["batch"])
}
