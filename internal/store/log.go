package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"citygrid/internal/model"
)

// Log holds step records in memory, in step order. Records are never
// changed once appended; readers always get copies.
type Log struct {
	mu      sync.RWMutex
	records []model.StepRecord
}

// Reader is the query side of a Log. Only the owner of the Log appends to
// it or clears it.
type Reader interface {
	Len() int
	Snapshot() []model.StepRecord
	Last() (model.StepRecord, bool)
	Since(step int) []model.StepRecord
	InRange(start, end time.Time) []model.StepRecord
	TimeRange() (model.TimeRange, bool)
}

var _ Reader = (*Log)(nil)

func New() *Log {
	return &Log{}
}

// Append adds the next record. Records must arrive in step order with
// non-decreasing timestamps.
func (l *Log) Append(r model.StepRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.records); n > 0 {
		last := l.records[n-1]
		if r.Step <= last.Step {
			return fmt.Errorf("step %d appended after step %d", r.Step, last.Step)
		}
		if r.Timestamp.Before(last.Timestamp) {
			return fmt.Errorf("step %d at %s is earlier than step %d at %s",
				r.Step, r.Timestamp.Format(time.RFC3339), last.Step, last.Timestamp.Format(time.RFC3339))
		}
	}
	l.records = append(l.records, r)
	return nil
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Snapshot returns a copy of every record.
func (l *Log) Snapshot() []model.StepRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]model.StepRecord, len(l.records))
	copy(result, l.records)
	return result
}

// Last returns the most recent record.
func (l *Log) Last() (model.StepRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.records) == 0 {
		return model.StepRecord{}, false
	}
	return l.records[len(l.records)-1], true
}

// Since returns records whose step is at or after step.
func (l *Log) Since(step int) []model.StepRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := sort.Search(len(l.records), func(i int) bool {
		return l.records[i].Step >= step
	})
	if idx >= len(l.records) {
		return nil
	}

	result := make([]model.StepRecord, len(l.records)-idx)
	copy(result, l.records[idx:])
	return result
}

// InRange returns records between start (inclusive) and end (exclusive).
func (l *Log) InRange(start, end time.Time) []model.StepRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.records) == 0 {
		return nil
	}

	// Binary search for start index
	startIdx := sort.Search(len(l.records), func(i int) bool {
		return !l.records[i].Timestamp.Before(start)
	})

	// Binary search for end index
	endIdx := sort.Search(len(l.records), func(i int) bool {
		return !l.records[i].Timestamp.Before(end)
	})

	if startIdx >= endIdx {
		return nil
	}

	result := make([]model.StepRecord, endIdx-startIdx)
	copy(result, l.records[startIdx:endIdx])
	return result
}

// TimeRange returns the timestamps of the first and last records.
func (l *Log) TimeRange() (model.TimeRange, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.records) == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{
		Start: l.records[0].Timestamp,
		End:   l.records[len(l.records)-1].Timestamp,
	}, true
}

// Clear drops every record. Only a full engine reset does this.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}
