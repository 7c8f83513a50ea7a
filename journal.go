package sagatx

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the kinds of events recorded for a step.
type EventType int

const (
	EventStarted EventType = iota
	EventSucceeded
	EventFailed
	EventSkipped
	EventUndoStarted
	EventUndoFinished
	EventUndoFailed
)

// String returns the string representation of the EventType.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventSkipped:
		return "skipped"
	case EventUndoStarted:
		return "undo_started"
	case EventUndoFinished:
		return "undo_finished"
	case EventUndoFailed:
		return "undo_failed"
	default:
		return fmt.Sprintf("Unknown EventType: %d", t)
	}
}

// StepStatus is the status of a step within one transaction.
type StepStatus int

const (
	StatusPending StepStatus = iota
	StatusInvoking
	StatusSucceeded
	StatusFailed
	StatusSkipped
	StatusCompensating
	StatusCompensated
	StatusCompensationFailed
)

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInvoking:
		return "invoking"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusCompensating:
		return "compensating"
	case StatusCompensated:
		return "compensated"
	case StatusCompensationFailed:
		return "compensation_failed"
	default:
		return fmt.Sprintf("Unknown StepStatus: %d", s)
	}
}

// nextStatus returns the new status for a step after recording the given event.
func (s StepStatus) nextStatus(eventType EventType) (StepStatus, error) {
	switch s {
	case StatusPending:
		if eventType == EventStarted {
			return StatusInvoking, nil
		}
	case StatusInvoking:
		switch eventType {
		case EventSucceeded:
			return StatusSucceeded, nil
		case EventFailed:
			return StatusFailed, nil
		case EventSkipped:
			return StatusSkipped, nil
		}
	// A saga that keeps going after a failure compensates its successes once
	// per failure, so a compensated step may be compensated again.
	case StatusSucceeded, StatusCompensated, StatusCompensationFailed:
		if eventType == EventUndoStarted {
			return StatusCompensating, nil
		}
	case StatusCompensating:
		switch eventType {
		case EventUndoFinished:
			return StatusCompensated, nil
		case EventUndoFailed:
			return StatusCompensationFailed, nil
		}
	}

	return StatusPending, fmt.Errorf(
		"illegal event type %s for current status %s",
		eventType, s,
	)
}

// Event is an entry in the journal.
type Event struct {
	Seq      int
	Position int
	StepName string
	Type     EventType
	At       time.Time
	Err      error
}

// String implements the fmt.Stringer interface for Event.
func (e Event) String() string {
	s := fmt.Sprintf("S%03d %-12s %s", e.Position, e.Type.String(), e.StepName)
	if e.Err != nil {
		s += fmt.Sprintf(" (%v)", e.Err)
	}
	return s
}

// Journal is the in-memory event log of one transaction. Steps are keyed by
// their position in the step list, so the same step value may appear twice.
type Journal struct {
	sync.Mutex
	txID      uuid.UUID
	unwinding bool
	events    []Event
	status    map[int]StepStatus
	nextPos   int
}

// NewJournal creates a new, empty Journal.
func NewJournal(txID uuid.UUID) *Journal {
	return &Journal{
		txID:   txID,
		events: make([]Event, 0),
		status: make(map[int]StepStatus),
	}
}

// Record adds an event to the Journal.
func (j *Journal) Record(position int, stepName string, eventType EventType, err error) error {
	j.Lock()
	defer j.Unlock()

	current := j.statusLocked(position)
	next, transitionErr := current.nextStatus(eventType)
	if transitionErr != nil {
		return fmt.Errorf("step %q at position %d: %w", stepName, position, transitionErr)
	}

	switch next {
	case StatusFailed, StatusCompensating, StatusCompensated, StatusCompensationFailed:
		j.unwinding = true
	}

	j.status[position] = next
	if position >= j.nextPos {
		j.nextPos = position + 1
	}
	j.events = append(j.events, Event{
		Seq:      len(j.events) + 1,
		Position: position,
		StepName: stepName,
		Type:     eventType,
		At:       time.Now(),
		Err:      err,
	})
	return nil
}

// Status returns the status of the step at position.
func (j *Journal) Status(position int) StepStatus {
	j.Lock()
	defer j.Unlock()

	return j.statusLocked(position)
}

func (j *Journal) statusLocked(position int) StepStatus {
	status, exists := j.status[position]
	if !exists {
		return StatusPending
	}
	return status
}

// NextPosition returns the first position after every recorded one.
func (j *Journal) NextPosition() int {
	j.Lock()
	defer j.Unlock()

	return j.nextPos
}

// Unwinding returns true once any step failed or compensation started.
func (j *Journal) Unwinding() bool {
	j.Lock()
	defer j.Unlock()

	return j.unwinding
}

// Events returns a copy of the recorded events.
func (j *Journal) Events() []Event {
	j.Lock()
	defer j.Unlock()

	return append([]Event(nil), j.events...)
}

// InvocationOrder returns the names of the steps that were started, in order.
func (j *Journal) InvocationOrder() []string {
	return j.namesFor(EventStarted)
}

// CompensationOrder returns the names of the steps whose compensation was
// started, in order.
func (j *Journal) CompensationOrder() []string {
	return j.namesFor(EventUndoStarted)
}

func (j *Journal) namesFor(eventType EventType) []string {
	j.Lock()
	defer j.Unlock()

	names := make([]string, 0)
	for _, e := range j.events {
		if e.Type == eventType {
			names = append(names, e.StepName)
		}
	}
	return names
}

// JournalPretty is a helper for pretty-printing a Journal.
type JournalPretty struct {
	Journal *Journal
}

// String implements the fmt.Stringer interface for JournalPretty.
func (p *JournalPretty) String() string {
	p.Journal.Lock()
	defer p.Journal.Unlock()

	var sb strings.Builder
	sb.WriteString("SAGA JOURNAL:\n")
	sb.WriteString(fmt.Sprintf("transaction id: %s\n", p.Journal.txID))
	direction := "forward"
	if p.Journal.unwinding {
		direction = "unwinding"
	}
	sb.WriteString(fmt.Sprintf("direction:      %s\n", direction))
	sb.WriteString(fmt.Sprintf("events (%d total):\n", len(p.Journal.events)))
	sb.WriteString("\n")
	for _, event := range p.Journal.events {
		sb.WriteString(fmt.Sprintf("%03d %s\n", event.Seq, event.String()))
	}
	return sb.String()
}
