package outputlog

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is one saved output block. Entries are immutable once appended.
type Entry struct {
	ID      string    `json:"id"`
	SavedAt time.Time `json:"saved_at"`
	Text    string    `json:"text"`
}

// Log is the append-only history of saved fits.
type Log struct {
	entries []Entry
	clock   func() time.Time
	entropy io.Reader
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) {
		l.clock = clock
	}
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		clock: func() time.Time {
			return time.Now().UTC()
		},
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore creates a log holding previously persisted entries, oldest first.
// Entries without an id get one derived from their timestamp, or from the
// current time when the timestamp cannot be encoded in a ULID.
func Restore(entries []Entry, opts ...Option) (*Log, error) {
	l := New(opts...)
	l.entries = make([]Entry, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			id, err := l.newID(e.SavedAt)
			if err != nil {
				return nil, fmt.Errorf("restore entry %d: %w", i, err)
			}
			e.ID = id
		}
		l.entries = append(l.entries, e)
	}
	return l, nil
}

// Append adds a formatted block and returns the stored entry.
func (l *Log) Append(text string) (Entry, error) {
	if strings.TrimSpace(text) == "" {
		return Entry{}, ErrEmptyEntry
	}
	now := l.clock()
	id, err := l.newID(now)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:      id,
		SavedAt: now,
		Text:    text,
	}
	l.entries = append(l.entries, entry)
	return entry, nil
}

// Entries returns a copy of all entries, oldest first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// String joins all entry texts with newlines, oldest first.
func (l *Log) String() string {
	texts := make([]string, len(l.entries))
	for i, e := range l.entries {
		texts[i] = e.Text
	}
	return strings.Join(texts, "\n")
}

func (l *Log) newID(at time.Time) (string, error) {
	if !encodable(at) {
		at = l.clock()
	}
	id, err := ulid.New(ulid.Timestamp(at), l.entropy)
	if err != nil {
		return "", fmt.Errorf("generate entry id: %w", err)
	}
	return id.String(), nil
}

// encodable reports whether at fits the 48-bit millisecond ULID timestamp.
func encodable(at time.Time) bool {
	if at.IsZero() {
		return false
	}
	ms := at.UnixMilli()
	return ms >= 0 && uint64(ms) <= ulid.MaxTime()
}
