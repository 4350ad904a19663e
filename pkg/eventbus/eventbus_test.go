package eventbus_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/opswell/adminkit/pkg/eventbus"
)

type createdEvent struct {
	Name string
}

type deletedEvent struct {
	ID uint
}

func TestEventPublisher_DispatchesToMatchingSubscriber(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	var got *createdEvent
	bus.Subscribe(func(e *createdEvent) {
		got = e
	})

	bus.Publish(&createdEvent{Name: "editor"})
	require.NotNil(t, got)
	require.Equal(t, "editor", got.Name)
}

func TestEventPublisher_SkipsNonMatchingSubscriber(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	called := false
	bus.Subscribe(func(e *deletedEvent) {
		called = true
	})

	bus.Publish(&createdEvent{Name: "editor"})
	require.False(t, called)
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	calls := 0
	handler := func(e *createdEvent) {
		calls++
	}
	bus.Subscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Publish(&createdEvent{})
	bus.Unsubscribe(handler)
	bus.Publish(&createdEvent{})
	require.Equal(t, 1, calls)
	require.Equal(t, 0, bus.SubscribersCount())
}

func TestEventPublisher_Clear(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())
	bus.Subscribe(func(e *createdEvent) {})
	bus.Subscribe(func(e *deletedEvent) {})
	require.Equal(t, 2, bus.SubscribersCount())

	bus.Clear()
	require.Equal(t, 0, bus.SubscribersCount())
}

func TestEventPublisher_RecoversFromPanickingHandler(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())

	bus.Subscribe(func(e *createdEvent) {
		panic("boom")
	})
	delivered := false
	bus.Subscribe(func(e *createdEvent) {
		delivered = true
	})

	require.NotPanics(t, func() {
		bus.Publish(&createdEvent{})
	})
	require.True(t, delivered)
}

func TestMatchSignature(t *testing.T) {
	require.True(t, eventbus.MatchSignature(func(e *createdEvent) {}, []interface{}{&createdEvent{}}))
	require.False(t, eventbus.MatchSignature(func(e *createdEvent) {}, []interface{}{&deletedEvent{}}))
	require.False(t, eventbus.MatchSignature(func(a, b *createdEvent) {}, []interface{}{&createdEvent{}}))
	require.False(t, eventbus.MatchSignature("not a func", []interface{}{&createdEvent{}}))
}
