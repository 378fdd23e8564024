package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/bankops/caseflow/pkg/channels/gochannel"
	"github.com/bankops/caseflow/pkg/eventbus"
	"github.com/bankops/caseflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := setupBus(t)

	received := make(chan *events.WorkflowStarted, 1)

	err := bus.Handle(events.WorkflowStartedEvent, func(_ context.Context, event any) error {
		started, ok := event.(*events.WorkflowStarted)
		if ok {
			received <- started
		}

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	event := events.WorkflowStarted{
		BaseEvent:   events.NewBaseEvent(events.WorkflowStartedEvent, "loan_application", "wfi-1", "case-1"),
		InitialData: map[string]any{"kyc_status": "pending"},
	}
	require.NoError(t, bus.Publish(ctx, "wfi-1", event))

	select {
	case started := <-received:
		assert.Equal(t, "loan_application", started.WorkflowName)
		assert.Equal(t, "wfi-1", started.InstanceID)
		assert.Equal(t, "case-1", started.CaseID)
		assert.Equal(t, "pending", started.InitialData["kyc_status"])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for workflow started event")
	}
}

func TestWatermillEventBus_UnhandledEventsAreAcked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := setupBus(t)

	received := make(chan *events.SLAViolated, 1)

	err := bus.Handle(events.SLAViolatedEvent, func(_ context.Context, event any) error {
		violated, ok := event.(*events.SLAViolated)
		if ok {
			received <- violated
		}

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	// No handler for step events; they are acked and skipped.
	require.NoError(t, bus.Publish(ctx, "wfi-1", events.StepCompleted{
		BaseEvent: events.NewBaseEvent(events.StepCompletedEvent, "loan_application", "wfi-1", "case-1"),
		StepID:    "initial_review",
	}))

	require.NoError(t, bus.Publish(ctx, "wfi-1", events.SLAViolated{
		BaseEvent:    events.NewBaseEvent(events.SLAViolatedEvent, "loan_application", "wfi-1", "case-1"),
		StepID:       "initial_review",
		SLAHours:     24,
		ElapsedHours: 30.5,
	}))

	select {
	case violated := <-received:
		assert.Equal(t, "initial_review", violated.StepID)
		assert.InDelta(t, 30.5, violated.ElapsedHours, 0.001)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for SLA event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := setupBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
