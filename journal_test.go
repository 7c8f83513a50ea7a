package sagatx

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalForwardTransitions(t *testing.T) {
	j := NewJournal(uuid.New())

	require.NoError(t, j.Record(0, "A", EventStarted, nil))
	assert.Equal(t, StatusInvoking, j.Status(0))
	require.NoError(t, j.Record(0, "A", EventSucceeded, nil))
	assert.Equal(t, StatusSucceeded, j.Status(0))

	require.NoError(t, j.Record(1, "B", EventStarted, nil))
	require.NoError(t, j.Record(1, "B", EventSkipped, nil))
	assert.Equal(t, StatusSkipped, j.Status(1))

	assert.False(t, j.Unwinding())
	assert.Equal(t, StatusPending, j.Status(7))
	assert.Equal(t, 2, j.NextPosition())
}

func TestJournalNextPositionFollowsHighestRecorded(t *testing.T) {
	j := NewJournal(uuid.New())
	assert.Equal(t, 0, j.NextPosition())

	require.NoError(t, j.Record(4, "E", EventStarted, nil))
	require.NoError(t, j.Record(1, "B", EventStarted, nil))
	assert.Equal(t, 5, j.NextPosition())

	// rejected events do not move it
	assert.Error(t, j.Record(9, "J", EventSucceeded, nil))
	assert.Equal(t, 5, j.NextPosition())
}

func TestJournalUnwinding(t *testing.T) {
	j := NewJournal(uuid.New())
	boom := errors.New("boom")

	require.NoError(t, j.Record(0, "A", EventStarted, nil))
	require.NoError(t, j.Record(0, "A", EventSucceeded, nil))
	require.NoError(t, j.Record(1, "B", EventStarted, nil))
	require.NoError(t, j.Record(1, "B", EventFailed, boom))
	assert.True(t, j.Unwinding())

	require.NoError(t, j.Record(0, "A", EventUndoStarted, nil))
	require.NoError(t, j.Record(0, "A", EventUndoFailed, boom))
	assert.Equal(t, StatusCompensationFailed, j.Status(0))

	// compensating again after a later failure is allowed
	require.NoError(t, j.Record(0, "A", EventUndoStarted, nil))
	require.NoError(t, j.Record(0, "A", EventUndoFinished, nil))
	assert.Equal(t, StatusCompensated, j.Status(0))

	events := j.Events()
	require.Len(t, events, 8)
	assert.Equal(t, 1, events[0].Seq)
	assert.Equal(t, boom, events[3].Err)
	assert.Equal(t, []string{"A", "A"}, j.CompensationOrder())
	assert.Equal(t, []string{"A", "B"}, j.InvocationOrder())
}

func TestJournalRejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []EventType
		event EventType
	}{
		{name: "succeed before start", event: EventSucceeded},
		{name: "undo never started step", event: EventUndoStarted},
		{name: "start twice", setup: []EventType{EventStarted}, event: EventStarted},
		{name: "undo failed step", setup: []EventType{EventStarted, EventFailed}, event: EventUndoStarted},
		{name: "undo skipped step", setup: []EventType{EventStarted, EventSkipped}, event: EventUndoStarted},
		{name: "finish undo not started", setup: []EventType{EventStarted, EventSucceeded}, event: EventUndoFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJournal(uuid.New())
			for _, e := range tt.setup {
				require.NoError(t, j.Record(0, "A", e, nil))
			}
			before := len(j.Events())
			assert.Error(t, j.Record(0, "A", tt.event, nil))
			assert.Len(t, j.Events(), before, "rejected events are not stored")
		})
	}
}

func TestJournalPretty(t *testing.T) {
	id := uuid.New()
	j := NewJournal(id)
	require.NoError(t, j.Record(0, "reserve", EventStarted, nil))
	require.NoError(t, j.Record(0, "reserve", EventFailed, errors.New("no stock")))

	out := (&JournalPretty{Journal: j}).String()
	assert.Contains(t, out, "SAGA JOURNAL:")
	assert.Contains(t, out, id.String())
	assert.Contains(t, out, "direction:      unwinding")
	assert.Contains(t, out, "events (2 total)")
	assert.Contains(t, out, "reserve (no stock)")
}

func TestEventTypeAndStatusStrings(t *testing.T) {
	assert.Equal(t, "undo_finished", EventUndoFinished.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Contains(t, EventType(99).String(), "Unknown")
	assert.Contains(t, StepStatus(99).String(), "Unknown")
}
