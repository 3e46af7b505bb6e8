package faults

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_KeepsCategoryAndChain(t *testing.T) {
	inner := New(goerrors.CategoryNotFound, CodeShardNotFound, "no shard owns 150")
	err := Wrap(inner, goerrors.CategoryOperation, CodeWarmFailed, "warm accounts")

	assert.Equal(t, goerrors.CategoryOperation, err.Category)
	assert.Equal(t, CodeWarmFailed, Code(err))
	assert.True(t, HasCode(err, CodeShardNotFound))
	assert.Same(t, inner, err.Source)
	assert.Equal(t, CodeShardNotFound, inner.TextCode, "wrapping must not relabel the cause")
}

func TestWrap_NilSource(t *testing.T) {
	err := Wrap(nil, goerrors.CategoryValidation, CodeInvalidConfig, "bad")
	require.NotNil(t, err)
	assert.Nil(t, err.Source)
	assert.Equal(t, CodeInvalidConfig, Code(err))
}

func TestHasCode_SearchesEveryJoinedBranch(t *testing.T) {
	first := Wrap(errors.New("shard offline"), goerrors.CategoryExternal, CodeShardQueryFailed, "query shard-1")
	second := Wrap(context.DeadlineExceeded, goerrors.CategoryOperation, CodeTaskCancelled, "task cancelled")
	err := Wrap(errors.Join(first, second), goerrors.CategoryExternal, CodeFanoutFailed, "ByField failed on every shard")

	assert.True(t, HasCode(err, CodeFanoutFailed))
	assert.True(t, HasCode(err, CodeShardQueryFailed))
	assert.True(t, HasCode(err, CodeTaskCancelled))
	assert.False(t, HasCode(err, CodeFanoutTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "shard offline")
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", Code(nil))
	assert.Equal(t, "", Code(errors.New("plain")))

	wrapped := Wrap(errors.New("x"), goerrors.CategoryExternal, CodeFanoutPartial, "partial")
	assert.Equal(t, CodeFanoutPartial, Code(fmtWrap(wrapped)))
}

type outer struct{ err error }

func (o outer) Error() string { return "outer: " + o.err.Error() }
func (o outer) Unwrap() error { return o.err }

func fmtWrap(err error) error { return outer{err: err} }
