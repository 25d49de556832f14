package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/Hellevator/internal/storage/postgres"
)

// Fields carries structured event data.
type Fields map[string]interface{}

// Journal persists events. *postgres.Client implements it.
type Journal interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, runID string) error
	Query(limit int) ([]postgres.EventRow, error)
}

var (
	buffer = NewRingBuffer(256)
	total  atomic.Uint64
)

var (
	journal       Journal
	runID         string
	jMu           sync.RWMutex
	jErrorEmitted bool
)

// SetJournal attaches the event journal. Every later event is appended to
// it tagged with runID.
func SetJournal(j Journal, run string) {
	jMu.Lock()
	journal = j
	runID = run
	jErrorEmitted = false
	jMu.Unlock()
}

// GetJournal returns the attached journal, or nil.
func GetJournal() Journal {
	jMu.RLock()
	defer jMu.RUnlock()
	return journal
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records a named event in the ring buffer, fans it out to
// subscribers and appends it to the journal. Unknown names are rejected.
func Emit(level, name, msg string, fields Fields) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	record(e)
	persist(ts, e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return b, nil
}

func record(e Event) {
	buffer.Add(e)
	total.Add(1)
	broadcast(e)
}

func persist(ts time.Time, e Event) {
	jMu.RLock()
	j, run := journal, runID
	jMu.RUnlock()
	if j == nil {
		return
	}

	err := j.Append(ts, e.Level, e.Name, e.Message, e.Fields, run)
	if err == nil {
		return
	}

	// Report the first failure only. record, not Emit, so a dead database
	// cannot recurse.
	jMu.Lock()
	first := !jErrorEmitted
	jErrorEmitted = true
	jMu.Unlock()
	if first {
		record(Event{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Level:     "error",
			Name:      "system.error",
			Message:   "journal append failed",
			Fields:    map[string]interface{}{"error": err.Error()},
		})
	}
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount is the number of events emitted since start.
func TotalCount() uint64 {
	return total.Load()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
