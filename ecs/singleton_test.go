package ecs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/plus3/softbody/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

func TestContextMissing(t *testing.T) {
	storage := ecs.NewStorage(ecs.NewComponentRegistry())

	_, err := ecs.Context[Mailbox](storage)
	require.Error(t, err)
	assert.ErrorIs(t, err, ecs.ErrMissingContext)

	var notFound *ecs.ContextNotFoundError
	require.True(t, errors.As(err, &notFound))

	// a failed read must not create the context
	assert.Equal(t, 0, storage.CollectStats().SingletonCount)
}

func TestSetContextOverwritesInPlace(t *testing.T) {
	storage := ecs.NewStorage(ecs.NewComponentRegistry())

	first := ecs.SetContext(storage, Viewport{Width: 1})
	second := ecs.SetContext(storage, Viewport{Width: 2})

	assert.Same(t, first, second)
	assert.Equal(t, 2, first.Width)
	assert.Equal(t, 1, storage.CollectStats().SingletonCount)

	got, err := ecs.Context[Viewport](storage)
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestContextInterfaceType(t *testing.T) {
	storage := ecs.NewStorage(ecs.NewComponentRegistry())

	ecs.SetContext[Greeter](storage, englishGreeter{})

	greeter, err := ecs.Context[Greeter](storage)
	require.NoError(t, err)
	assert.Equal(t, "hello", (*greeter).Greet())
}

func TestSingletonAccessorSeesLaterSet(t *testing.T) {
	storage := ecs.NewStorage(ecs.NewComponentRegistry())

	var accessor ecs.Singleton[Viewport]
	accessor.Init(storage)
	assert.False(t, accessor.Exists())
	assert.Nil(t, accessor.Get())

	_, err := accessor.Lookup()
	assert.ErrorIs(t, err, ecs.ErrMissingContext)

	storage.AddSingleton(&Viewport{Width: 7})
	score, err := accessor.Lookup()
	require.NoError(t, err)
	assert.Equal(t, 7, score.Width)
}

func TestStorageStatsSingletonTypes(t *testing.T) {
	storage := ecs.NewStorage(ecs.NewComponentRegistry())
	ecs.SetContext(storage, Viewport{})
	ecs.SetContext(storage, Mailbox{})

	stats := storage.CollectStats()
	assert.Equal(t, []string{
		fmt.Sprintf("%T", Viewport{}),
		fmt.Sprintf("%T", Mailbox{}),
	}, stats.SingletonTypes)
}
