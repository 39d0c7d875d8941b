package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/google/uuid"
	"github.com/hupe1980/imgcache/model"
	"github.com/stretchr/testify/assert"
)

type netTimeout struct{}

func (netTimeout) Error() string { return "i/o timeout" }
func (netTimeout) Timeout() bool { return true }

func TestClassify(t *testing.T) {
	key := model.Avatar(uuid.MustParse("0b7f0d3c-4b3a-4b8e-9d7e-2f6f2a1b9c01"))

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"fs not exist", fs.ErrNotExist, KindNotFound},
		{"wrapped not found", fmt.Errorf("get object: %w", ErrNotFound), KindNotFound},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("read: %w", context.DeadlineExceeded), KindTimeout},
		{"timeout interface", netTimeout{}, KindTimeout},
		{"sentinel timeout", ErrTimeout, KindTimeout},
		{"other", errors.New("connection reset"), KindTransient},
		{"canceled", context.Canceled, KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			le := Classify(key, tt.err)
			assert.Equal(t, tt.want, le.Kind)
			assert.Equal(t, key, le.Key)
			assert.ErrorIs(t, le, tt.err)
		})
	}
}

func TestClassify_KeepsLoaderError(t *testing.T) {
	key := model.LocalDrawing(uuid.New())
	orig := &LoaderError{Kind: KindNotFound, Key: key, Err: errors.New("gone")}

	wrapped := fmt.Errorf("fallback: %w", orig)
	assert.Same(t, orig, Classify(model.LocalDrawing(uuid.New()), wrapped))
}

func TestLoaderError_Is(t *testing.T) {
	key := model.LocalDrawing(uuid.New())

	notFound := &LoaderError{Kind: KindNotFound, Key: key, Err: errors.New("x")}
	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.NotErrorIs(t, notFound, ErrTimeout)
	assert.NotErrorIs(t, notFound, ErrTransient)
	assert.True(t, IsNotFound(fmt.Errorf("resolve: %w", notFound)))

	timeout := &LoaderError{Kind: KindTimeout, Key: key, Err: context.DeadlineExceeded}
	assert.ErrorIs(t, timeout, ErrTimeout)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	transient := &LoaderError{Kind: KindTransient, Key: key, Err: errors.New("x")}
	assert.ErrorIs(t, transient, ErrTransient)
	assert.Contains(t, transient.Error(), key.String())
	assert.Contains(t, transient.Error(), "transient")
}

func TestLookupStatus_String(t *testing.T) {
	assert.Equal(t, "hit", LookupStatusHit.String())
	assert.Equal(t, "miss", LookupStatusMiss.String())
	assert.Equal(t, "error", LookupStatusError.String())
	assert.Equal(t, "42", LookupStatus(42).String())
}
