package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishLogsHandlerFailureAndContinues(t *testing.T) {
	core, observed := observer.New(zap.ErrorLevel)
	dispatcher := NewInMemoryDispatcher(zap.New(core))

	var calls []string
	dispatcher.Subscribe(EventAllocationCreated, func(context.Context, Event) error {
		calls = append(calls, "failing")
		return errors.New("write refused")
	})
	dispatcher.Subscribe(EventAllocationCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{
		ID:   "evt-1",
		Type: EventAllocationCreated,
	})
	require.NoError(t, err)

	// The failing handler never blocks the rest.
	assert.Equal(t, []string{"failing", "second"}, calls)

	entries := observed.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "evt-1", entries[0].ContextMap()["event_id"])
	assert.Equal(t, string(EventAllocationCreated), entries[0].ContextMap()["event_type"])
}

func TestPublishWithoutSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)
	err := dispatcher.Publish(context.Background(), Event{ID: "evt-2", Type: EventAccessDenied})
	require.NoError(t, err)
}
