package captions

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
)

var (
	// ErrNotFound reports that no entry carries the requested id.
	ErrNotFound = errors.New("caption entry not found")
	// ErrDuplicateID reports an insert that reuses an existing id.
	ErrDuplicateID = errors.New("duplicate caption id")
	// ErrEmptyText rejects edits that would blank an entry.
	ErrEmptyText = errors.New("caption text must not be empty")
)

// Entry is a timestamped span of text aligned to the video timeline.
// Times are seconds; StartTime < EndTime always holds for populated entries.
type Entry struct {
	ID        string
	StartTime float64
	EndTime   float64
	Text      string
}

// Set is an ordered collection of caption entries. Entries are expected to be
// non-overlapping and sorted by start time; the source feeds produce them that
// way and lookups assume it.
type Set struct {
	entries []Entry
	byID    map[string]int
}

// NewSet builds a Set from entries, rejecting duplicate ids.
func NewSet(entries []Entry) (*Set, error) {
	set := &Set{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for _, entry := range entries {
		if err := set.Insert(entry); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Insert appends an entry, rejecting duplicate ids and inverted time windows.
func (s *Set) Insert(entry Entry) error {
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("caption entry id must not be empty")
	}
	if _, exists := s.byID[entry.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID)
	}
	if entry.StartTime < 0 || entry.EndTime <= entry.StartTime {
		return fmt.Errorf("caption entry %s: invalid time window [%v, %v]", entry.ID, entry.StartTime, entry.EndTime)
	}
	s.byID[entry.ID] = len(s.entries)
	s.entries = append(s.entries, entry)
	return nil
}

// Len reports the number of entries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Get returns the entry with the given id.
func (s *Set) Get(id string) (Entry, error) {
	if s == nil {
		return Entry{}, ErrNotFound
	}
	idx, ok := s.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.entries[idx], nil
}

// FindActive returns the entry whose window contains the given time, or nil
// when the time falls in a gap. When the query time sits exactly on a
// boundary shared by two entries, the entry whose start equals the query time
// wins.
func (s *Set) FindActive(time float64) *Entry {
	if s == nil || len(s.entries) == 0 {
		return nil
	}
	var match *Entry
	for i := range s.entries {
		entry := &s.entries[i]
		if time < entry.StartTime {
			break
		}
		if time > entry.EndTime {
			continue
		}
		if entry.StartTime == time {
			found := *entry
			return &found
		}
		if match == nil {
			match = entry
		}
	}
	if match == nil {
		return nil
	}
	found := *match
	return &found
}

// Update replaces the text of the entry with the matching id.
func (s *Set) Update(id, newText string) error {
	if strings.TrimSpace(newText) == "" {
		return ErrEmptyText
	}
	idx, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.entries[idx].Text = newText
	return nil
}

// All returns a restartable sequence of entries in ascending start order.
func (s *Set) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if s == nil {
			return
		}
		for _, entry := range s.entries {
			if !yield(entry) {
				return
			}
		}
	}
}

// Entries returns a copy of the backing slice in ascending start order.
func (s *Set) Entries() []Entry {
	if s == nil {
		return nil
	}
	cp := make([]Entry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// SortByStart re-sorts entries after bulk loads from storage, where row order
// is not guaranteed to match timeline order.
func (s *Set) SortByStart() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].StartTime < s.entries[j].StartTime
	})
	for i, entry := range s.entries {
		s.byID[entry.ID] = i
	}
}
