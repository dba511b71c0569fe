// Package history keeps a newest-first list of submissions and persists the
// whole list into a single named slot on every mutation.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const SlotName = "math-history"

var ErrNotFound = errors.New("history: not found")

type Problem struct {
	Problem string `json:"problem"`
	Answer  string `json:"answer"`
}

type Entry struct {
	ID            string  `json:"id"`
	Problem       Problem `json:"problem"`
	SolutionImage string  `json:"solutionImage"` // data URI
	Feedback      string  `json:"feedback"`
	Timestamp     string  `json:"timestamp"`
}

// Slot is durable storage for one serialized value per key. Load returns
// ErrNotFound (or an error wrapping it) for a key that was never saved.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// SlotKey namespaces the history slot by owner (a browser session or a chat).
func SlotKey(owner string) string {
	if owner == "" {
		return SlotName
	}
	return owner + "/" + SlotName
}

// NewEntry stamps a submission with a time-ordered id and a ko-KR style timestamp.
func NewEntry(p Problem, solutionImage, feedback string, now time.Time) Entry {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Entry{
		ID:            id.String(),
		Problem:       p,
		SolutionImage: solutionImage,
		Feedback:      feedback,
		Timestamp:     FormatTimestamp(now),
	}
}

// FormatTimestamp renders t the way the ko-KR locale prints date-times,
// e.g. "2025. 1. 2. 오후 3:04:05".
func FormatTimestamp(t time.Time) string {
	ampm := "오전"
	if t.Hour() >= 12 {
		ampm = "오후"
	}
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), ampm, h, t.Minute(), t.Second())
}

type Log struct {
	mu      sync.Mutex
	slot    Slot
	key     string
	entries []Entry
}

// Open reads the slot. A missing or unreadable value starts an empty log.
func Open(ctx context.Context, slot Slot, key string) (*Log, error) {
	l := &Log{slot: slot, key: key}
	raw, err := slot.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return l, nil
	case err != nil:
		return nil, fmt.Errorf("history: load %s: %w", key, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &l.entries); err != nil {
			l.entries = nil
		}
	}
	return l, nil
}

func (l *Log) Key() string { return l.key }

// Entries returns a copy, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) Prepend(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]Entry, 0, len(l.entries)+1)
	next = append(next, e)
	next = append(next, l.entries...)
	return l.commit(ctx, next)
}

func (l *Log) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	next := slices.Delete(slices.Clone(l.entries), i, i+1)
	return l.commit(ctx, next)
}

func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(ctx, []Entry{})
}

// commit persists next and only then makes it the in-memory list.
func (l *Log) commit(ctx context.Context, next []Entry) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := l.slot.Save(ctx, l.key, raw); err != nil {
		return fmt.Errorf("history: save %s: %w", l.key, err)
	}
	l.entries = next
	return nil
}
